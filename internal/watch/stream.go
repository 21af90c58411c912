package watch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

// OutputFormat selects how streamed events are rendered.
type OutputFormat string

const (
	// OutputFormatDefault is human-readable output with timestamps.
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is one event envelope per line.
	OutputFormatJSON OutputFormat = "json"
)

type formatter interface {
	FormatEvent(e area.Event) error
}

func newFormatter(format OutputFormat, w io.Writer) (formatter, error) {
	switch format {
	case OutputFormatDefault, "":
		return &defaultFormatter{writer: w}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// StreamEvents writes every event published for the given areas, plus
// town-wide player movement, until ctx is cancelled.
func StreamEvents(ctx context.Context, client *area.Client, areaIDs []string, format OutputFormat, w io.Writer) error {
	f, err := newFormatter(format, w)
	if err != nil {
		return err
	}

	subs := make([]*area.Subscription, 0, len(areaIDs)+1)
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	for _, id := range areaIDs {
		sub, err := client.SubscribeAreaEvents(ctx, id)
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}
	town, err := client.SubscribeTownEvents(ctx)
	if err != nil {
		return err
	}
	subs = append(subs, town)

	merged := make(chan area.Event)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *area.Subscription) {
			defer wg.Done()
			for e := range sub.Events() {
				select {
				case merged <- e:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-merged:
			if !ok {
				return nil
			}
			if err := f.FormatEvent(e); err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}

type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatEvent(e area.Event) error {
	ts := time.Now().Format("15:04:05")

	switch ev := e.(type) {
	case area.AreaUpdated:
		s := ev.Snapshot
		occupants := "-"
		if len(s.Occupants) > 0 {
			occupants = strings.Join(s.Occupants, ",")
		}
		if s.Notes.IsZero() {
			_, err := fmt.Fprintf(f.writer, "[%s] 🧹 Notes reset: area=%s occupants=%s\n", ts, s.ID, occupants)
			return err
		}
		c := notes.Normalize(s.Notes)
		_, err := fmt.Fprintf(f.writer, "[%s] 📝 Notes updated: area=%s notes=%d occupants=%s\n", ts, s.ID, c.Len(), occupants)
		return err

	case area.PlayerMoved:
		where := ev.Location.InteractableID
		if where == "" {
			where = "-"
		}
		_, err := fmt.Fprintf(f.writer, "[%s] 🚶 Player moved: id=%s area=%s\n", ts, ev.PlayerID, where)
		return err

	default:
		_, err := fmt.Fprintf(f.writer, "[%s] %s\n", ts, e.Name())
		return err
	}
}

type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatEvent(e area.Event) error {
	data, err := area.EncodeEvent(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}
