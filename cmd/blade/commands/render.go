package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	blade "github.com/leaf-app/go-blade"
)

func newRenderCmd(logger func() zerolog.Logger, envFiles *[]string) *cobra.Command {
	var (
		viewsDir   string
		dataFile   string
		production bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "render NAME",
		Short: "Render a template to stdout",
		Example: `  blade render pages.home --views views/blade --data home.json
  blade render emails/welcome.html --data user.yaml --production`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := blade.LoadConfig(*envFiles...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("views") {
				cfg.ViewsDir = viewsDir
			}
			if cmd.Flags().Changed("production") {
				cfg.Production = production
			}
			if noCache {
				cfg.Cache = false
			}

			data, err := loadData(dataFile)
			if err != nil {
				return err
			}

			log := logger()
			log.Debug().Str("views", cfg.ViewsDir).Bool("production", cfg.Production).Msg("Rendering template")

			engine, err := blade.NewFromConfig(cfg, blade.WithLogger(log))
			if err != nil {
				return err
			}
			return engine.RenderContext(cmd.Context(), cmd.OutOrStdout(), args[0], data)
		},
	}

	cmd.Flags().StringVar(&viewsDir, "views", "", "Views root directory (default $BLADE_VIEWS_DIR or views/blade)")
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON or YAML file with render data")
	cmd.Flags().BoolVar(&production, "production", false, "Strip {{-- comments --}} instead of marking them (default from APP_ENV)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the template cache")

	return cmd
}

// loadData reads render data from a .json, .yaml or .yml file. An empty
// path yields empty data.
func loadData(path string) (*blade.Data, error) {
	data := &blade.Data{}
	if path == "" {
		return data, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, data)
	default:
		return nil, fmt.Errorf("unsupported data file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return data, nil
}
