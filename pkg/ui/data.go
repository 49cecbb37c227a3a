package ui

import (
	"encoding/json"
	"io"

	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/pipeline"
	"gopkg.in/yaml.v3"
)

// dataRenderer writes the underlying values with a structured encoder
type dataRenderer struct {
	encode func(v interface{}) error
}

func newJSONRenderer(output io.Writer) *dataRenderer {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return &dataRenderer{encode: encoder.Encode}
}

func newYAMLRenderer(output io.Writer) *dataRenderer {
	return &dataRenderer{encode: func(v interface{}) error {
		encoder := yaml.NewEncoder(output)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	}}
}

func (r *dataRenderer) RenderBuild(res *pipeline.Result) error {
	return r.encode(res)
}

func (r *dataRenderer) RenderInspection(reports []*objfile.Report) error {
	return r.encode(map[string]interface{}{"objects": reports})
}

func (r *dataRenderer) RenderError(err error) error {
	return r.encode(map[string]interface{}{"error": NewErrorView(err)})
}

func (r *dataRenderer) RenderMessage(msg string) error {
	return r.encode(map[string]string{"message": msg})
}
