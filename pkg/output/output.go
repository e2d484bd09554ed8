package output

import (
	"encoding/json"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Render writes v to w. format is "json", "yaml" or a Go template executed
// with the sprig function map.
func Render(w io.Writer, format string, v interface{}) error {
	switch strings.TrimSpace(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(format)
	if err != nil {
		return errors.Wrap(err, "unable to parse format template")
	}

	if err := tmpl.Execute(w, v); err != nil {
		return err
	}

	if !strings.HasSuffix(format, "\n") {
		_, err = io.WriteString(w, "\n")
	}

	return err
}
