package main

import (
	"encoding/json"
	"io"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func render(c *cli.Context, v any, text func(io.Writer)) error {
	return writeOutput(c.App.Writer, c.String("output"), v, text)
}

// writeOutput renders v in the requested format. YAML keys follow the JSON
// field names.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case "", formatText:
		text(w)
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var tree any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return err
		}
		return enc.Close()
	}
	return errortypes.Validationf("unknown output format %q", format)
}
