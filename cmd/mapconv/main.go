// mapconv converts RPG Maker MV/MZ map files (MapXXX.json) into the YAML map
// container format read by the event copy runtime.
//
// Script commands (code 355 and its 655 continuation lines) are kept as the
// page script; all other event commands are dropped.
//
// Usage:
//
//	go run ./cmd/mapconv [input_dir] [output_dir]
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/l1jgo/eventcopy/internal/data"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// RPG Maker JSON structures
// ---------------------------------------------------------------------------

type rmMap struct {
	DisplayName string     `json:"displayName"`
	Width       int32      `json:"width"`
	Height      int32      `json:"height"`
	Events      []*rmEvent `json:"events"` // index = event id, [0] and deleted ids are null
}

type rmEvent struct {
	ID    int32    `json:"id"`
	Name  string   `json:"name"`
	Note  string   `json:"note"`
	X     int32    `json:"x"`
	Y     int32    `json:"y"`
	Pages []rmPage `json:"pages"`
}

type rmPage struct {
	Trigger      int         `json:"trigger"`
	PriorityType int         `json:"priorityType"`
	Through      bool        `json:"through"`
	Image        rmImage     `json:"image"`
	List         []rmCommand `json:"list"`
}

type rmImage struct {
	CharacterName  string `json:"characterName"`
	CharacterIndex int    `json:"characterIndex"`
	Direction      int    `json:"direction"`
	Pattern        int    `json:"pattern"`
	TileID         int    `json:"tileId"`
}

type rmCommand struct {
	Code       int   `json:"code"`
	Parameters []any `json:"parameters"`
}

type rmMapInfo struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

const (
	codeScript     = 355
	codeScriptMore = 655
)

// ---------------------------------------------------------------------------
// YAML structures
// ---------------------------------------------------------------------------

type mapFile struct {
	MapID  int32             `yaml:"map_id"`
	Name   string            `yaml:"name"`
	Width  int32             `yaml:"width"`
	Height int32             `yaml:"height"`
	Events []*data.EventData `yaml:"events"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

var mapFileRe = regexp.MustCompile(`^Map(\d{3,})\.json$`)

func main() {
	inputDir := filepath.Join("..", "rpgmaker", "data")
	outputDir := filepath.Join("data", "maps")
	if len(os.Args) >= 2 {
		inputDir = os.Args[1]
	}
	if len(os.Args) >= 3 {
		outputDir = os.Args[2]
	}

	names := loadMapInfos(filepath.Join(inputDir, "MapInfos.json"))

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", inputDir, err)
		os.Exit(1)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating %s: %v\n", outputDir, err)
		os.Exit(1)
	}

	converted, events := 0, 0
	for _, entry := range entries {
		m := mapFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		raw, err := os.ReadFile(filepath.Join(inputDir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading %s: %v\n", entry.Name(), err)
			os.Exit(1)
		}
		out, n, err := convert(int32(id), names[int32(id)], raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error converting %s: %v\n", entry.Name(), err)
			os.Exit(1)
		}
		path := filepath.Join(outputDir, fmt.Sprintf("Map%03d.yaml", id))
		if err := os.WriteFile(path, out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		converted++
		events += n
	}

	fmt.Printf("Converted %d maps (%d events) → %s\n", converted, events, outputDir)
}

// loadMapInfos reads map display names. A missing file yields no names.
func loadMapInfos(path string) map[int32]string {
	names := make(map[int32]string)
	raw, err := os.ReadFile(path)
	if err != nil {
		return names
	}
	var infos []*rmMapInfo
	if err := json.Unmarshal(raw, &infos); err != nil {
		fmt.Fprintf(os.Stderr, "warning: parsing %s: %v\n", path, err)
		return names
	}
	for _, info := range infos {
		if info != nil {
			names[info.ID] = info.Name
		}
	}
	return names
}

// convert turns one RPG Maker map into YAML and returns the event count.
func convert(mapID int32, name string, raw []byte) ([]byte, int, error) {
	var src rmMap
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, 0, fmt.Errorf("parse json: %w", err)
	}
	if name == "" {
		name = src.DisplayName
	}

	f := mapFile{MapID: mapID, Name: name, Width: src.Width, Height: src.Height}
	for _, ev := range src.Events {
		if ev == nil || ev.ID <= 0 {
			continue
		}
		def := &data.EventData{ID: ev.ID, Name: ev.Name, Note: ev.Note, X: ev.X, Y: ev.Y}
		for _, p := range ev.Pages {
			def.Pages = append(def.Pages, data.EventPage{
				Trigger:  p.Trigger,
				Priority: p.PriorityType,
				Through:  p.Through,
				Image: data.EventImage{
					CharacterName:  p.Image.CharacterName,
					CharacterIndex: p.Image.CharacterIndex,
					Direction:      p.Image.Direction,
					Pattern:        p.Image.Pattern,
					TileID:         p.Image.TileID,
				},
				Script: pageScript(p.List),
			})
		}
		f.Events = append(f.Events, def)
	}
	sort.Slice(f.Events, func(i, j int) bool { return f.Events[i].ID < f.Events[j].ID })

	out, err := yaml.Marshal(&f)
	if err != nil {
		return nil, 0, fmt.Errorf("encode yaml: %w", err)
	}
	// the runtime must be able to read what we wrote
	if _, err := data.DecodeMap(out); err != nil {
		return nil, 0, err
	}
	return out, len(f.Events), nil
}

// pageScript joins the text of script commands in a page command list.
func pageScript(list []rmCommand) string {
	var lines []string
	for _, c := range list {
		if c.Code != codeScript && c.Code != codeScriptMore {
			continue
		}
		if len(c.Parameters) == 0 {
			continue
		}
		if s, ok := c.Parameters[0].(string); ok {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
