package cmd

import (
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/car-deal-tracker/api/openapi"
	"github.com/donaldgifford/car-deal-tracker/internal/dedup"
	"github.com/donaldgifford/car-deal-tracker/internal/pipeline"
	"github.com/donaldgifford/car-deal-tracker/internal/render"
	"github.com/donaldgifford/car-deal-tracker/internal/store"
	"github.com/donaldgifford/car-deal-tracker/pkg/logger"
	score "github.com/donaldgifford/car-deal-tracker/pkg/scorer"
)

// OpenAPISpec renders the admin API description as "json" or "yaml"
// without starting the server.
func OpenAPISpec(format string) ([]byte, error) {
	api := newAPI(echo.New())
	registerAPI(api, apiDeps{
		orchestrator: pipeline.New(
			render.NewStaticRenderer(nil),
			score.NewRuleEvaluator(),
			nil,
			dedup.New(1),
			pipeline.WithLogger(logger.Discard()),
		),
		history: store.NewMemoryStore(),
		log:     logger.Discard(),
	})
	return openapi.Render(api, format)
}

func openapiCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the admin API OpenAPI description",
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := OpenAPISpec(format)
			if err != nil {
				return err
			}
			if _, err := os.Stdout.Write(data); err != nil {
				return fmt.Errorf("writing spec: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (json, yaml)")
	return cmd
}
