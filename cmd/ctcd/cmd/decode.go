package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/soniq-ml/ctcd/internal/decoder"
	"github.com/soniq-ml/ctcd/internal/onnx"
	"github.com/soniq-ml/ctcd/internal/server"
	"github.com/soniq-ml/ctcd/internal/tensor"
	"github.com/spf13/cobra"
)

// decodeFile is the on-disk input schema: the request body plus an
// optional raw "features" matrix for model-backed decoding.
type decodeFile struct {
	server.DecodeRequest
	// Features is a [batch][time][dim] matrix fed through the model given
	// by --model to produce scores.
	Features [][][]float32 `json:"features,omitempty"`
}

// decodeCmd represents the decode command.
var decodeCmd = &cobra.Command{
	Use:   "decode [input.json]",
	Short: "Decode score or label sequences from a JSON file",
	Long: `Decode a batch of sequences with greedy CTC decoding.

The input file carries either a "scores" field ([batch][time][vocab]
floats) or a "labels" field ([batch][time] integers), plus an optional
"lengths" field giving the valid extent of each sequence. With --model,
the file carries a "features" field instead; features are run through
the ONNX model to produce the scores.

Examples:
  ctcd decode scores.json
  ctcd decode scores.json --blank-index 2 --timestamps
  ctcd decode features.json --model acoustic.onnx
  ctcd decode labels.json --output hypotheses.json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input file provided")
		}
		if len(args) > 1 {
			return fmt.Errorf("expected exactly one input file, got %d", len(args))
		}

		cfg := GetConfig()

		blankIndex := cfg.Decode.BlankIndex
		if cmd.Flags().Changed("blank-index") {
			blankIndex, _ = cmd.Flags().GetInt("blank-index")
		}
		timestamps := cfg.Decode.ComputeTimestamps
		if cmd.Flags().Changed("timestamps") {
			timestamps, _ = cmd.Flags().GetBool("timestamps")
		}
		alignments := cfg.Decode.PreserveAlignments
		if cmd.Flags().Changed("alignments") {
			alignments, _ = cmd.Flags().GetBool("alignments")
		}
		workers := cfg.Decode.MaxWorkers
		if cmd.Flags().Changed("workers") {
			workers, _ = cmd.Flags().GetInt("workers")
		}
		outputFile, _ := cmd.Flags().GetString("output")

		if blankIndex < 0 {
			return fmt.Errorf("invalid blank index: %d (must be >= 0)", blankIndex)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		var file decodeFile
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse input file: %w", err)
		}

		if modelPath, _ := cmd.Flags().GetString("model"); modelPath != "" {
			if err := runModel(&file, modelPath); err != nil {
				return err
			}
		}

		input, _, err := server.BuildInput(&file.DecodeRequest)
		if err != nil {
			return err
		}

		g := decoder.NewGreedy(decoder.Config{
			BlankIndex:         blankIndex,
			PreserveAlignments: alignments,
			ComputeTimestamps:  timestamps,
		})
		pcfg := decoder.DefaultParallelConfig()
		if workers > 0 {
			pcfg.MaxWorkers = workers
		}

		hypotheses, err := g.DecodeParallel(context.Background(), input, file.Lengths, pcfg)
		if err != nil {
			return err
		}

		results := make([]server.HypothesisResult, len(hypotheses))
		for i := range hypotheses {
			results[i] = server.ToWire(hypotheses[i])
		}

		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		out = append(out, '\n')

		if outputFile != "" {
			if err := os.WriteFile(outputFile, out, 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			return nil
		}

		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// runModel feeds the file's features through the ONNX model and replaces
// them with the resulting scores.
func runModel(file *decodeFile, modelPath string) error {
	if len(file.Features) == 0 {
		return errors.New("--model requires a \"features\" field in the input file")
	}
	if len(file.Scores) > 0 || len(file.Labels) > 0 {
		return errors.New("--model input must carry features only, not scores or labels")
	}

	features, err := flattenFeatures(file.Features)
	if err != nil {
		return err
	}

	cfg := onnx.DefaultConfig()
	cfg.ModelPath = modelPath
	cfg.NumThreads = GetConfig().Model.NumThreads

	model, err := onnx.NewModel(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = model.Close() }()

	scores, err := model.Run(features)
	if err != nil {
		return err
	}
	if scores.Rank() != 3 {
		return fmt.Errorf("model must emit a [batch, time, vocab] tensor, got shape %v", scores.Shape)
	}

	out := make([][][]float32, scores.Dim(0))
	timeExtent, vocab := scores.Dim(1), scores.Dim(2)
	for b := range out {
		seq := scores.Row(b)
		out[b] = make([][]float32, timeExtent)
		for t := 0; t < timeExtent; t++ {
			out[b][t] = seq[t*vocab : (t+1)*vocab]
		}
	}
	file.Scores = out
	file.Features = nil
	return nil
}

func flattenFeatures(features [][][]float32) (tensor.Tensor, error) {
	batch := len(features)
	timeExtent := len(features[0])
	dim := 0
	if timeExtent > 0 {
		dim = len(features[0][0])
	}

	data := make([]float32, 0, batch*timeExtent*dim)
	for b, seq := range features {
		if len(seq) != timeExtent {
			return tensor.Tensor{}, fmt.Errorf("ragged features: sequence %d has %d frames, expected %d", b, len(seq), timeExtent)
		}
		for t, frame := range seq {
			if len(frame) != dim {
				return tensor.Tensor{}, fmt.Errorf("ragged features: frame [%d][%d] has %d values, expected %d", b, t, len(frame), dim)
			}
			data = append(data, frame...)
		}
	}
	return tensor.New(data, int64(batch), int64(timeExtent), int64(dim))
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().Int("blank-index", 0, "vocabulary index treated as the CTC blank")
	decodeCmd.Flags().Bool("timestamps", false, "report the frame index of each non-blank emission")
	decodeCmd.Flags().Bool("alignments", false, "attach the truncated score matrix to each hypothesis (scores input only)")
	decodeCmd.Flags().Int("workers", 0, "number of decode workers (0 = number of CPUs)")
	decodeCmd.Flags().StringP("output", "o", "", "write results to a file instead of stdout")
	decodeCmd.Flags().String("model", "", "ONNX model producing scores from the input's \"features\" field")
}
