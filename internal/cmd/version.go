package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var (
	extended    bool
	versionJSON bool
)

// buildInfo is the version payload printed by "version --json".
type buildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Go        string `json:"go"`
	Gofulmen  string `json:"gofulmen,omitempty"`
	Crucible  string `json:"crucible,omitempty"`
}

func currentBuildInfo(name string, withSSOT bool) buildInfo {
	info := buildInfo{
		Name:      name,
		Version:   versionInfo.Version,
		Commit:    versionInfo.Commit,
		BuildDate: versionInfo.BuildDate,
		Go:        runtime.Version(),
	}
	if withSSOT {
		v := crucible.GetVersion()
		info.Gofulmen = v.Gofulmen
		info.Crucible = v.Crucible
	}
	return info
}

func writeBuildInfo(w io.Writer, info buildInfo, asJSON, full bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	if _, err := fmt.Fprintf(w, "%s %s\n", info.Name, info.Version); err != nil {
		return err
	}
	if !full {
		return nil
	}
	_, err := fmt.Fprintf(w, "Commit: %s\nBuilt: %s\nGo: %s\n\nGofulmen: %s\nCrucible: %s\n",
		info.Commit, info.BuildDate, info.Go, info.Gofulmen, info.Crucible)
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for commit, build and Go details.",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "aptoseidon"
		if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
			name = identity.BinaryName
		}
		full := extended || versionJSON
		return writeBuildInfo(cmd.OutOrStdout(), currentBuildInfo(name, full), versionJSON, full)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print version information as JSON")
}
