package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/attune-io/attune/task"
)

// TasksCommand returns the tasks command, which lists every registered
// task and its artifact contract.
func TasksCommand(registry *task.Registry) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List registered tasks",
		Flags: []cli.Flag{JSONFlag},
		Action: func(c *cli.Context) error {
			descs := registry.List()
			if c.Bool("json") {
				return printTasksJSON(descs)
			}
			printTasksTable(descs)
			return nil
		},
	}
}

type taskSummary struct {
	ID      string        `json:"id"`
	Usage   string        `json:"usage"`
	Inputs  []string      `json:"inputs"`
	Outputs []string      `json:"outputs"`
	Params  []paramDetail `json:"params,omitempty"`
}

type paramDetail struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  any    `json:"default,omitempty"`
	Usage    string `json:"usage,omitempty"`
}

func printTasksJSON(descs []task.Descriptor) error {
	summaries := make([]taskSummary, 0, len(descs))
	for _, d := range descs {
		s := taskSummary{ID: d.ID, Usage: d.Usage}
		for _, in := range d.Inputs {
			s.Inputs = append(s.Inputs, in.Name)
		}
		for _, out := range d.Outputs {
			s.Outputs = append(s.Outputs, out.Name)
		}
		for _, p := range d.Params {
			s.Params = append(s.Params, paramDetail{
				Name:     p.Name,
				Type:     string(p.Type),
				Required: p.Required,
				Default:  p.Default,
				Usage:    p.Usage,
			})
		}
		summaries = append(summaries, s)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func printTasksTable(descs []task.Descriptor) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tINPUTS\tOUTPUTS\tUSAGE")
	for _, d := range descs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			d.ID, specNames(d.Inputs), specNames(d.Outputs), d.Usage)
	}
	_ = w.Flush()
}
