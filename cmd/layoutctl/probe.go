package main

import (
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	abi "github.com/woxQAQ/taffy-bridge/api/wasm"
	"github.com/woxQAQ/taffy-bridge/internal/diag"
)

type probeReport struct {
	Environment string   `yaml:"environment"`
	CanFetch    bool     `yaml:"can_fetch"`
	HasFS       bool     `yaml:"has_fs"`
	Strategy    string   `yaml:"strategy"`
	Diagnostics string   `yaml:"diagnostics"`
	Module      string   `yaml:"module"`
	Compiled    string   `yaml:"compiled,omitempty"`
	SizeBytes   int64    `yaml:"size_bytes,omitempty"`
	Exports     []string `yaml:"exports,omitempty"`
	MissingABI  []string `yaml:"missing_abi,omitempty"`
	Error       string   `yaml:"error,omitempty"`
}

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report the bootstrap strategy and the exports of the engine module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := a.bootstrapper(ctx)
			if err != nil {
				return err
			}
			defer b.Close(ctx)

			env := b.Environment()
			report := probeReport{
				Environment: env.Name,
				CanFetch:    env.CanFetch,
				HasFS:       env.HasFS,
				Strategy:    b.Strategy().String(),
				Diagnostics: diag.Active.String(),
				Module:      a.cfg.Module,
			}

			compiled, err := b.Compile(ctx)
			if err != nil {
				report.Error = err.Error()
			} else {
				report.Compiled = compiled.Name
				report.SizeBytes = compiled.SizeBytes
				for name := range compiled.Module.ExportedFunctions() {
					report.Exports = append(report.Exports, name)
				}
				report.MissingABI = compiled.MissingExports(abi.RequiredExports...)
			}
			slices.Sort(report.Exports)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
