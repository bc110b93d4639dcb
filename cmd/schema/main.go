// Command schema writes a JSON schema for the navigation socket. Each
// envelope type gets its own entry under $defs, keyed by the type string
// the host puts in the envelope.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/nstehr/vimy/vimy-nav/ipc"
	"github.com/nstehr/vimy/vimy-nav/model"
	"github.com/nstehr/vimy/vimy-nav/world"
)

// payloads maps each envelope type to the Go value carried in its data
// field. Plain acks share the update ack shape with changed left out.
var payloads = map[string]any{
	ipc.TypeHello:           ipc.HelloMessage{},
	ipc.TypeAck:             ipc.UpdateAck{},
	ipc.TypeError:           ipc.ErrorMessage{},
	ipc.TypeGameState:       model.GameState{},
	ipc.TypeFindPath:        ipc.FindPathRequest{},
	ipc.TypePath:            ipc.PathReply{},
	ipc.TypeFindCell:        ipc.FindCellRequest{},
	ipc.TypeCell:            ipc.CellReply{},
	ipc.TypeUpdateArea:      ipc.UpdateAreaRequest{},
	ipc.TypePlaceStructure:  ipc.PlaceStructureRequest{},
	ipc.TypePlacement:       ipc.PlacementReply{},
	ipc.TypeRemoveStructure: ipc.RemoveStructureRequest{},
}

// watchEvent is the message type of the debug websocket stream. It never
// travels over the socket but hosts consume it too.
const watchEvent = "area_change"

func main() {
	out := flag.String("out", "", "file to write the protocol schema to")
	flag.Parse()

	if *out == "" {
		slog.Error("missing -out")
		os.Exit(2)
	}
	if err := writeSchema(*out, buildSchema()); err != nil {
		slog.Error("schema not written", "path", *out, "error", err)
		os.Exit(1)
	}
	slog.Info("schema written", "path", *out)
}

// buildSchema reflects every payload inline and offers them as
// alternatives, so a validator can check any envelope's data against the
// entry for its type.
func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
	}

	defs := make(jsonschema.Definitions, len(payloads)+1)
	add := func(name string, v any) {
		s := reflector.Reflect(v)
		s.Version = ""
		s.Title = name
		defs[name] = s
	}
	for name, v := range payloads {
		add(name, v)
	}
	add(watchEvent, world.AreaChange{})

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	refs := make([]*jsonschema.Schema, 0, len(names))
	for _, name := range names {
		refs = append(refs, &jsonschema.Schema{Ref: "#/$defs/" + name})
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "vimy-nav protocol",
		Description: "Envelope data payloads keyed by envelope type, plus the watch stream event",
		OneOf:       refs,
		Definitions: defs,
	}
}

// writeSchema stages the document next to path and renames it into place
// so readers never see a partial file.
func writeSchema(path string, schema *jsonschema.Schema) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("stage schema: %w", err)
	}
	staged := f.Name()
	defer os.Remove(staged)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schema); err != nil {
		f.Close()
		return fmt.Errorf("encode schema: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("stage schema: %w", err)
	}
	if err := os.Chmod(staged, 0o644); err != nil {
		return fmt.Errorf("stage schema: %w", err)
	}
	return os.Rename(staged, path)
}
