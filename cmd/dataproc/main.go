// Command dataproc compiles and evaluates ComputationalTask batches against
// historical Ethereum state, producing a Cairo-formatted proof bundle for
// the downstream prover.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/evaluator"
	"github.com/herodotus-xyz/data-processor/fetcher"
	"github.com/herodotus-xyz/data-processor/log"
	"github.com/herodotus-xyz/data-processor/output"
	"github.com/herodotus-xyz/data-processor/rpcclient"
	"github.com/herodotus-xyz/data-processor/types"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "dataproc:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: dataproc <encode|decode|decode-one|run> [flags]")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "encode":
		return runEncode(args[1:])
	case "decode":
		return runDecode(args[1:])
	case "decode-one":
		return runDecodeOne(args[1:])
	case "run":
		return runEvaluate(ctx, args[1:])
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runDecode(args []string) error {
	flags := newFlagSet("decode")
	tasksHex := flags.String("tasks", "", "hex-encoded bytes[] batch of ComputationalTasks")
	datalakesHex := flags.String("datalakes", "", "hex-encoded bytes[] batch of datalakes")
	if err := flags.Parse(args); err != nil {
		return err
	}

	out := struct {
		Tasks     []codec.ComputationalTask `json:"tasks,omitempty"`
		Datalakes []codec.Datalake          `json:"datalakes,omitempty"`
	}{}

	if *tasksHex != "" {
		tasks, err := codec.DecodeTasks(types.FromHex(*tasksHex))
		if err != nil {
			return err
		}
		out.Tasks = tasks
	}
	if *datalakesHex != "" {
		datalakes, err := codec.DecodeDatalakes(types.FromHex(*datalakesHex))
		if err != nil {
			return err
		}
		out.Datalakes = datalakes
	}

	return json.NewEncoder(os.Stdout).Encode(out)
}

func runEvaluate(ctx context.Context, args []string) error {
	flags := newFlagSet("run")
	tasksHex := flags.String("tasks", "", "hex-encoded bytes[] batch of ComputationalTasks")
	datalakesHex := flags.String("datalakes", "", "hex-encoded bytes[] batch of datalakes")
	rpcURL := flags.String("rpc-url", os.Getenv("RPC_URL"), "archive node JSON-RPC endpoint (defaults to $RPC_URL)")
	indexerURL := flags.String("indexer-url", os.Getenv("INDEXER_URL"), "MMR indexer base URL (defaults to $INDEXER_URL)")
	deployedOnChain := flags.String("deployed-on-chain", os.Getenv("INDEXER_DEPLOYED_ON_CHAIN"), "chain id the MMR aggregator contract is deployed on")
	accumulatesChain := flags.String("accumulates-chain", os.Getenv("INDEXER_ACCUMULATES_CHAIN"), "chain id the MMR accumulates headers from")
	outputPath := flags.String("output", "", "write the bundle JSON to this path instead of stdout")
	format := flags.String("format", "cairo", "bundle output format: cairo (prover-ready) or raw")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *tasksHex == "" || *datalakesHex == "" {
		return fmt.Errorf("run requires both -tasks and -datalakes")
	}
	if *rpcURL == "" {
		return fmt.Errorf("run requires -rpc-url or $RPC_URL")
	}
	if *indexerURL == "" {
		return fmt.Errorf("run requires -indexer-url or $INDEXER_URL")
	}

	tasks, err := codec.DecodeTasks(types.FromHex(*tasksHex))
	if err != nil {
		return err
	}
	datalakes, err := codec.DecodeDatalakes(types.FromHex(*datalakesHex))
	if err != nil {
		return err
	}

	archive, err := rpcclient.Dial(ctx, *rpcURL)
	if err != nil {
		return err
	}
	indexer := rpcclient.NewIndexerClient(*indexerURL, *deployedOnChain, *accumulatesChain)

	f := fetcher.New(archive, indexer)
	log.Info("evaluating batch", "tasks", len(tasks), "datalakes", len(datalakes))

	bundle, err := evaluator.Evaluate(ctx, f, tasks, datalakes)
	if err != nil {
		return err
	}

	var payload any
	switch *format {
	case "raw":
		payload = bundle
	case "cairo":
		payload = output.FormatBundle(bundle)
	default:
		return fmt.Errorf("unknown -format %q (want cairo or raw)", *format)
	}

	w := io.Writer(os.Stdout)
	if *outputPath != "" {
		file, err := os.Create(*outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// taskSpec is the JSON shape "encode" accepts for one ComputationalTask:
// the aggregate function id plus its optional COUNTIF context, spelled the
// same way DecodeTask's fields read back out.
type taskSpec struct {
	Fn  string  `json:"fn"`
	Ctx *string `json:"ctx,omitempty"`
}

// datalakeSpec is the JSON shape "encode" accepts for one datalake: a
// "kind" discriminant plus the fields relevant to that kind. BlockSampled
// and TransactionsInBlock are the only encodable kinds (DynamicLayout is
// decode-only, see codec.EncodeDatalake).
type datalakeSpec struct {
	Kind      string `json:"kind"`
	Start     uint64 `json:"start,omitempty"`
	End       uint64 `json:"end,omitempty"`
	Block     uint64 `json:"block,omitempty"`
	Increment uint64 `json:"increment"`
	Property  string `json:"property"`
}

func (s datalakeSpec) toDatalake() (codec.Datalake, error) {
	switch s.Kind {
	case "block_sampled":
		prop, err := codec.ParseSampledProperty(s.Property)
		if err != nil {
			return codec.Datalake{}, err
		}
		return codec.Datalake{
			Kind: codec.DatalakeBlockSampled,
			BlockSampled: codec.BlockSampledDatalake{
				BlockRangeStart: s.Start,
				BlockRangeEnd:   s.End,
				Increment:       s.Increment,
				Property:        prop,
			},
		}, nil
	case "transactions_in_block":
		prop, err := codec.ParseTransactionsProperty(s.Property)
		if err != nil {
			return codec.Datalake{}, err
		}
		return codec.Datalake{
			Kind: codec.DatalakeTransactionsInBlock,
			Transactions: codec.TransactionsInBlockDatalake{
				TargetBlock: s.Block,
				Increment:   s.Increment,
				Property:    prop,
			},
		}, nil
	default:
		return codec.Datalake{}, fmt.Errorf("unknown datalake kind %q", s.Kind)
	}
}

// runEncode reads JSON task/datalake specs from files (or "-" for stdin)
// and prints the hex-encoded "bytes[]" batch for each side provided, the
// inverse of "decode".
func runEncode(args []string) error {
	flags := newFlagSet("encode")
	tasksPath := flags.String("tasks", "", "path to a JSON array of task specs ('-' for stdin)")
	datalakesPath := flags.String("datalakes", "", "path to a JSON array of datalake specs ('-' for stdin)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	out := struct {
		Tasks     string `json:"tasks,omitempty"`
		Datalakes string `json:"datalakes,omitempty"`
	}{}

	if *tasksPath != "" {
		var specs []taskSpec
		if err := readJSONFile(*tasksPath, &specs); err != nil {
			return err
		}
		tasks := make([]codec.ComputationalTask, len(specs))
		for i, s := range specs {
			t := codec.ComputationalTask{Fn: codec.AggregateFn(s.Fn)}
			if s.Ctx != nil {
				u := types.HexToU256(*s.Ctx)
				t.Ctx = &u
			}
			tasks[i] = t
		}
		encoded, err := codec.EncodeTasks(tasks)
		if err != nil {
			return err
		}
		out.Tasks = fmt.Sprintf("0x%x", encoded)
	}

	if *datalakesPath != "" {
		var specs []datalakeSpec
		if err := readJSONFile(*datalakesPath, &specs); err != nil {
			return err
		}
		datalakes := make([]codec.Datalake, len(specs))
		for i, s := range specs {
			dl, err := s.toDatalake()
			if err != nil {
				return err
			}
			datalakes[i] = dl
		}
		encoded, err := codec.EncodeDatalakes(datalakes)
		if err != nil {
			return err
		}
		out.Datalakes = fmt.Sprintf("0x%x", encoded)
	}

	return json.NewEncoder(os.Stdout).Encode(out)
}

func readJSONFile(path string, v any) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(v)
}

// runDecodeOne decodes a single hex-encoded task or datalake tuple — not
// wrapped in the outer "bytes[]" container "decode" expects — useful when
// inspecting one element pulled out of a larger batch.
func runDecodeOne(args []string) error {
	flags := newFlagSet("decode-one")
	taskHex := flags.String("task", "", "hex-encoded single ComputationalTask tuple")
	datalakeHex := flags.String("datalake", "", "hex-encoded single datalake tuple")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *taskHex == "" && *datalakeHex == "" {
		return fmt.Errorf("decode-one requires -task or -datalake")
	}

	out := struct {
		Task     *codec.ComputationalTask `json:"task,omitempty"`
		Datalake *codec.Datalake          `json:"datalake,omitempty"`
	}{}

	if *taskHex != "" {
		t, err := codec.DecodeTask(types.FromHex(*taskHex))
		if err != nil {
			return err
		}
		out.Task = &t
	}
	if *datalakeHex != "" {
		d, err := codec.DecodeDatalake(types.FromHex(*datalakeHex))
		if err != nil {
			return err
		}
		out.Datalake = &d
	}

	return json.NewEncoder(os.Stdout).Encode(out)
}
