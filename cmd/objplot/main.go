// Command objplot は目的関数の損失・勾配・ヘシアンをマージンに対して描画します。
//
//	objplot -o reg:pseudohubererror -a huber_slope=0.5 --label=1 --out=huber.png
//	objplot list
//
// 実行時設定は GBOBJ_* 環境変数（--env-file で読み込み可能）から取得します。
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	docopt "github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/YuminosukeSato/gbobjective/objective"
	"github.com/YuminosukeSato/gbobjective/pkg/config"
	"github.com/YuminosukeSato/gbobjective/pkg/errors"
	"github.com/YuminosukeSato/gbobjective/pkg/log"
)

const usage = `objplot draws the loss, gradient and Hessian of an objective.

Usage:
  objplot [options]
  objplot list
  objplot -h | --help

Options:
  -h, --help              show this screen
  -o, --objective=<name>  registered objective [default: reg:squarederror]
  -a, --args=<kv>         comma separated key=value objective arguments
  --label=<y>             label the curves are drawn for [default: 0]
  --min=<m>               smallest margin [default: -3]
  --max=<m>               largest margin [default: 3]
  -n, --points=<n>        number of sampled margins [default: 200]
  --out=<file>            output file; png, svg or pdf [default: objective.png]
  --env-file=<file>       KEY=VALUE file loaded before reading GBOBJ_* settings
`

type options struct {
	Objective string
	Args      string
	Label     float64
	Min       float64
	Max       float64
	Points    int
	Out       string
	EnvFile   string
	List      bool
	Help      bool
}

func parseOptions(argv []string) (options, error) {
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}
	opts, err := parser.ParseArgs(usage, argv, "")
	if err != nil {
		return options{}, errors.Wrap(err, "parse arguments")
	}
	if h, _ := opts["--help"].(bool); h || opts == nil {
		return options{Help: true}, nil
	}

	str := func(key string) string {
		s, _ := opts[key].(string)
		return s
	}
	num := func(key string) (float64, error) {
		v, err := strconv.ParseFloat(str(key), 64)
		if err != nil {
			return 0, errors.NewConfigurationError("objplot", key, "must be a number", str(key))
		}
		return v, nil
	}

	o := options{
		Objective: str("--objective"),
		Args:      str("--args"),
		Out:       str("--out"),
		EnvFile:   str("--env-file"),
	}
	if o.List, _ = opts["list"].(bool); o.List {
		return o, nil
	}
	if o.Label, err = num("--label"); err != nil {
		return options{}, err
	}
	if o.Min, err = num("--min"); err != nil {
		return options{}, err
	}
	if o.Max, err = num("--max"); err != nil {
		return options{}, err
	}
	if o.Points, err = strconv.Atoi(str("--points")); err != nil {
		return options{}, errors.NewConfigurationError("objplot", "--points", "must be an integer", str("--points"))
	}
	return o, nil
}

// listObjectives は登録済みの目的関数を表形式で出力します。
func listObjectives(w io.Writer, reg *objective.Registry) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"objective", "task", "metric", "description"})
	for _, name := range reg.Names() {
		obj, err := reg.Create(name, nil)
		if err != nil {
			return err
		}
		desc, err := reg.Describe(name)
		if err != nil {
			return err
		}
		table.Append([]string{name, obj.Task().Kind.String(), obj.DefaultEvalMetric(), desc})
	}
	table.Render()
	return nil
}

// loadRuntime reads GBOBJ_* settings after merging envFile into the
// environment. Variables already set take precedence over the file.
func loadRuntime(envFile string) (config.Runtime, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return config.Runtime{}, errors.Wrapf(err, "load %s", envFile)
		}
	}
	return config.Load()
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if opts.Help {
		fmt.Print(usage)
		return
	}
	if opts.List {
		if err := listObjectives(os.Stdout, objective.Default()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadRuntime(opts.EnvFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, err := objective.NewContext(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := ctx.Logger.With(log.ComponentKey, "objplot")

	if err := run(ctx, opts); err != nil {
		logger.Error("plot failed", err, log.ObjectiveKey, opts.Objective)
		os.Exit(1)
	}
	logger.Info("plot written", log.ObjectiveKey, opts.Objective, "path", opts.Out)
}

func run(ctx *objective.Context, opts options) error {
	args, err := parseArgs(opts.Args)
	if err != nil {
		return err
	}
	obj, err := objective.Create(opts.Objective, ctx)
	if err != nil {
		return err
	}
	if err := obj.Configure(args); err != nil {
		return err
	}
	curves, err := sampleCurves(obj, opts.Label, opts.Min, opts.Max, opts.Points)
	if err != nil {
		return err
	}
	return render(fmt.Sprintf("%s (label %g)", opts.Objective, opts.Label), curves, opts.Out)
}
