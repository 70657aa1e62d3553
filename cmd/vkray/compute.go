package main

import (
	"fmt"
	"io"
	"log"
	"os"

	vkr "github.com/Gaubbe/vk-ray-marcher"
	"github.com/Gaubbe/vk-ray-marcher/shaders"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newComputeCommand(opts *options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Run the headless copy and multiply checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := vkr.DefaultConfig()
			if opts.configFile != "" {
				var err error
				if cfg, err = vkr.LoadConfig(opts.configFile); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("validation") {
				cfg.Validation = opts.validation
			}
			c, err := vkr.NewCompute(cfg, log.New(os.Stderr, "vkray: ", log.LstdFlags))
			if err != nil {
				return err
			}
			defer c.Destroy()
			return runCompute(cmd.OutOrStdout(), c, count)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 65536, "number of integers to multiply")
	return cmd
}

func sequence(n int) []uint32 {
	values := make([]uint32, n)
	for i := range values {
		values[i] = uint32(i)
	}
	return values
}

// firstMismatch returns the first index where got differs from want(i), or -1
func firstMismatch(got []uint32, want func(i int) uint32) int {
	for i, v := range got {
		if v != want(i) {
			return i
		}
	}
	return -1
}

func runCompute(w io.Writer, c *vkr.Compute, count int) error {
	if count <= 0 {
		return errors.Errorf("count must be positive, got %d", count)
	}

	copied, err := c.CopyRoundTrip(sequence(64))
	if err != nil {
		return errors.Wrap(err, "copy")
	}
	if i := firstMismatch(copied, func(i int) uint32 { return uint32(i) }); i >= 0 {
		return errors.Errorf("copy: content[%d] = %d, want %d", i, copied[i], i)
	}
	fmt.Fprintf(w, "copy: %d values verified\n", len(copied))

	multiplied, err := c.Dispatch(shaders.Multiply, shaders.ComputeEntry, sequence(count), shaders.MultiplyWorkgroupSize)
	if err != nil {
		return errors.Wrap(err, "multiply")
	}
	if i := firstMismatch(multiplied, func(i int) uint32 { return uint32(i) * 12 }); i >= 0 {
		return errors.Errorf("multiply: content[%d] = %d, want %d", i, multiplied[i], i*12)
	}
	fmt.Fprintf(w, "multiply: %d values verified\n", len(multiplied))
	return nil
}
