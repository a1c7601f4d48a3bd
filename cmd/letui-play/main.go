// Command letui-play is a layout playground: it loads a serialized
// layout request from a JSON file, solves it, and prints the resolved
// frame of every node.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"letui"
)

var (
	width  float64
	height float64
)

var rootCmd = &cobra.Command{
	Use:   "letui-play <tree.json>",
	Short: "Solve a letui layout request and print the frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		tree, err := letui.ParseLayoutRequest(payload)
		if err != nil {
			return err
		}

		var frames []float32
		if width > 0 && height > 0 {
			frames = tree.SolveSize(float32(width), float32(height))
		} else {
			frames = tree.Solve()
		}

		for i := 0; i*4 < len(frames); i++ {
			f := frames[i*4:]
			fmt.Printf("%4d  x=%-8.2f y=%-8.2f w=%-8.2f h=%-8.2f\n", i, f[0], f[1], f[2], f[3])
		}
		return nil
	},
}

func main() {
	rootCmd.Flags().Float64Var(&width, "width", 0, "override the root width")
	rootCmd.Flags().Float64Var(&height, "height", 0, "override the root height")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal("letui-play failed", "err", err)
	}
}
