// Command upload-config seeds the remote parameter table the controller reads
// at boot, and saves the local credentials file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"

	"solar_collector/internal/config"
	"solar_collector/internal/localstore"
	"solar_collector/internal/logger"
	"solar_collector/internal/repository"
	"solar_collector/internal/repository/db"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	driver    string
	dsn       string
	namespace string
)

var rootCmd = &cobra.Command{
	Use:   "upload-config",
	Short: "Manage the solar controller's remote parameters and local credentials",
}

var pushCmd = &cobra.Command{
	Use:   "push <params.yml>",
	Short: "Write every parameter of a YAML file to the remote config table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		params, err := readParams(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		conn, err := db.Open(driver, dsn)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := push(cmd.Context(), repository.NewRemoteConfigSQL(conn), namespace, params); err != nil {
			return err
		}
		cmd.Printf("wrote %d parameters to %s/%s\n", len(params), driver, namespace)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the parameters stored in the remote config table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(driver, dsn)
		if err != nil {
			return err
		}
		defer conn.Close()

		return show(cmd.Context(), cmd.OutOrStdout(), repository.NewRemoteConfigSQL(conn), namespace)
	},
}

var (
	credsDir string
	creds    localstore.Credentials
)

var credsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Save the network and remote host credentials read by the controller at boot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := localstore.New(afero.NewOsFs(), credsDir, logger.Get(logger.InfoLevel))
		if err := store.Save(creds); err != nil {
			return err
		}
		cmd.Printf("saved credentials to %s\n", credsDir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", db.DriverSQLite, "database driver (sqlite|mysql)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "app.db", "database file or MySQL DSN")
	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", config.DefaultNamespace, "parameter namespace")

	credsCmd.Flags().StringVar(&credsDir, "dir", ".", "directory holding the credentials file")
	credsCmd.Flags().StringVar(&creds.WiFiSSID, "wifi-ssid", "", "WiFi SSID")
	credsCmd.Flags().StringVar(&creds.WiFiPassword, "wifi-password", "", "WiFi password")
	credsCmd.Flags().StringVar(&creds.RemoteHost, "remote-host", "", "remote database host")
	credsCmd.Flags().StringVar(&creds.RemoteAuth, "remote-auth", "", "remote database secret")

	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(credsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readParams decodes a flat YAML mapping of parameter names to scalars.
// Unknown names are rejected.
func readParams(r io.Reader) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	known := config.Names()
	out := make(map[string]string, len(raw))
	for name, v := range raw {
		if !slices.Contains(known, name) {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		switch v := v.(type) {
		case int:
			out[name] = strconv.Itoa(v)
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			out[name] = v
		default:
			return nil, fmt.Errorf("parameter %q: unsupported value %v", name, v)
		}
	}
	return out, nil
}

func push(ctx context.Context, repo repository.RemoteConfigRepo, namespace string, params map[string]string) error {
	for _, name := range config.Names() {
		v, ok := params[name]
		if !ok {
			continue
		}
		if err := repo.Set(ctx, namespace, name, v); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

func show(ctx context.Context, w io.Writer, repo repository.RemoteConfigRepo, namespace string) error {
	params, err := repo.List(ctx, namespace)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", name, params[name]); err != nil {
			return err
		}
	}
	return nil
}
