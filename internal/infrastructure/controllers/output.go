package controllers

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// render writes value on the command's stdout in the requested --output
// format: text (default), json, or yaml.
func render(cmd *cobra.Command, value any) {
	format, _ := cmd.Flags().GetString("output")
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			fail(fmt.Errorf("failed to render json: %w", err))
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(value)
		if err != nil {
			fail(fmt.Errorf("failed to render yaml: %w", err))
		}
		fmt.Fprint(out, string(data))
	default:
		renderText(cmd, value)
	}
}

// renderText prints value in the plain human format.
func renderText(cmd *cobra.Command, value any) {
	out := cmd.OutOrStdout()
	switch typed := value.(type) {
	case string:
		fmt.Fprintln(out, typed)
	case []string:
		for _, line := range typed {
			fmt.Fprintln(out, line)
		}
	default:
		fmt.Fprintf(out, "%+v\n", value)
	}
}
