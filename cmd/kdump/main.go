// Command kdump renders a kernel.Snapshot captured off a running (or
// simulated) kernel and saved as JSON. It never talks to the kernel package's
// runtime state directly — by the time a Snapshot reaches this tool, the
// device it came from may be long gone.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/user-none/go-rtos-kernel/debug"
	"github.com/user-none/go-rtos-kernel/kernel"
)

func main() {
	if err := SetupCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetupCLI constructs the kdump command hierarchy.
func SetupCLI() *cobra.Command {
	root := &cobra.Command{
		Use:   "kdump",
		Short: "Render a captured kernel snapshot as a host-readable table.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	root.Flags().Int("pid", -1, "also spew-dump this process's full record")
	return root
}

func runDump(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot(args[0])
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	fmt.Print(string(debug.Render(snap)))

	pid, err := pidFlag(cmd.Flags())
	if err != nil {
		return err
	}
	if pid >= 0 {
		fmt.Println()
		fmt.Println(debug.Dump(snap, pid))
	}
	return nil
}

func loadSnapshot(path string) (kernel.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return kernel.Snapshot{}, err
	}
	defer f.Close()

	var snap kernel.Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return kernel.Snapshot{}, err
	}
	return snap, nil
}

func pidFlag(fs *pflag.FlagSet) (int, error) {
	return fs.GetInt("pid")
}
