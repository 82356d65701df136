package main

import (
	"fmt"
	"io"

	"nodegraph/application/importer"
	"nodegraph/domain/config"
	"nodegraph/infrastructure/source"
	pkgerrors "nodegraph/pkg/errors"

	"github.com/spf13/cobra"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a descriptor file without touching the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return validateDescriptorFile(cmd.OutOrStdout(), validateFile, config.LoadDomainConfig(cfg.Environment))
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "YAML or JSON descriptor file")
	_ = validateCmd.MarkFlagRequired("file")
}

// validateDescriptorFile prints one line per violation and returns an error
// when the file would be rejected by an import.
func validateDescriptorFile(out io.Writer, path string, cfg *config.DomainConfig) error {
	descriptors, err := source.LoadYAMLFile(path, cfg)
	if err != nil {
		if appErr := pkgerrors.GetAppError(err); appErr != nil {
			if violations, ok := appErr.Details["violations"].([]pkgerrors.FieldViolation); ok {
				for _, v := range violations {
					fmt.Fprintf(out, "%s: %s\n", v.Field, v.Message)
				}
				return fmt.Errorf("%s: %d violation(s)", path, len(violations))
			}
		}
		return err
	}

	fmt.Fprintf(out, "%s: ok, %d node(s)\n", path, importer.Count(descriptors))
	return nil
}
