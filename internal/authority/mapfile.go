package authority

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/jotter/pkg/area"
	"github.com/dyluth/jotter/pkg/notes"
)

// objectGroupLayer is the Tiled layer type that holds map objects.
const objectGroupLayer = "objectgroup"

// MapObject is a rectangular object from the town map. Tiled exports these
// inside object layers; the short map format lists them under "areas".
type MapObject struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name" validate:"required_without=ID"`
	Type   string  `yaml:"type" json:"type"`
	Class  string  `yaml:"class" json:"class"`
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width" validate:"gt=0"`
	Height float64 `yaml:"height" json:"height" validate:"gt=0"`
}

// AreaID returns the identifier the area is known by: its name, or its
// object id when it has no name.
func (o MapObject) AreaID() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID
}

// Kind returns the object's type. Newer Tiled versions call it "class".
func (o MapObject) Kind() string {
	if o.Type != "" {
		return o.Type
	}
	return o.Class
}

// MapLayer is one Tiled layer. Only object groups are read.
type MapLayer struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Objects []MapObject `yaml:"objects"`
}

// MapFile is a town map. Both the Tiled JSON export and a short YAML form
// are accepted:
//
//	areas:
//	  - name: notes-corner
//	    x: 10
//	    y: 20
//	    width: 96
//	    height: 64
type MapFile struct {
	Areas  []MapObject `yaml:"areas"`
	Layers []MapLayer  `yaml:"layers"`
}

var (
	mapValidator     *validator.Validate
	mapValidatorOnce sync.Once
)

func getMapValidator() *validator.Validate {
	mapValidatorOnce.Do(func() {
		mapValidator = validator.New()
	})
	return mapValidator
}

// FromMapObject builds a note-taking area from a map object. The object must
// have a name (or id) and a positive width and height; otherwise a
// *area.MalformedAreaError is returned. The new area holds one seed note.
func FromMapObject(obj MapObject, emitter Emitter) (*NoteArea, error) {
	if err := getMapValidator().Struct(obj); err != nil {
		return nil, &area.MalformedAreaError{Name: obj.AreaID(), Reason: describeValidation(err)}
	}

	seed := notes.NewCollection(notes.Note{
		ID:      notes.SeedNoteID,
		Title:   notes.DefaultNoteTitle,
		Content: notes.NewNoteContent,
	})
	box := BoundingBox{X: obj.X, Y: obj.Y, Width: obj.Width, Height: obj.Height}

	return NewNoteArea(obj.AreaID(), notes.NotesPayload(seed), box, emitter), nil
}

// describeValidation turns validator errors into a short reason.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "gt":
			reasons = append(reasons, fmt.Sprintf("%s must be greater than 0", strings.ToLower(fe.Field())))
		case "required_without":
			reasons = append(reasons, "name or id is required")
		default:
			reasons = append(reasons, fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(reasons, ", ")
}

// ParseMap builds every note-taking area described by map data. Objects under
// "areas" are note-taking areas unless they name another type; objects in
// Tiled object layers must have type NoteTakingArea. Any malformed area, or
// two areas with the same id, fails the whole parse.
func ParseMap(data []byte, emitter Emitter) ([]*NoteArea, error) {
	var m MapFile
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse map: %w", err)
	}

	var objects []MapObject
	for _, obj := range m.Areas {
		if kind := obj.Kind(); kind == "" || kind == area.TypeNoteTakingArea {
			objects = append(objects, obj)
		}
	}
	for _, layer := range m.Layers {
		if layer.Type != objectGroupLayer {
			continue
		}
		for _, obj := range layer.Objects {
			if obj.Kind() == area.TypeNoteTakingArea {
				objects = append(objects, obj)
			}
		}
	}

	seen := make(map[string]bool, len(objects))
	areas := make([]*NoteArea, 0, len(objects))
	for _, obj := range objects {
		a, err := FromMapObject(obj, emitter)
		if err != nil {
			return nil, err
		}
		if seen[a.ID()] {
			return nil, fmt.Errorf("duplicate area id %q in map", a.ID())
		}
		seen[a.ID()] = true
		areas = append(areas, a)
	}

	return areas, nil
}

// LoadMap reads a map file and builds its note-taking areas.
func LoadMap(path string, emitter Emitter) ([]*NoteArea, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	areas, err := ParseMap(data, emitter)
	if err != nil {
		return nil, fmt.Errorf("failed to load map %s: %w", path, err)
	}
	return areas, nil
}
