package commands

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nulzo/vision-grader/internal/cli"
	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/spf13/cobra"
)

type gradeOptions struct {
	slot    string
	prompt  string
	image   string
	baseURL string
	apiKey  string
	modelID string
	asJSON  bool
}

func newGradeCmd(root *rootOptions) *cobra.Command {
	o := &gradeOptions{}

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Send an image and prompt through a slot",
		Long: `Grade reads the image from --image (a file path, or "-" for stdin) and
prints the model's answer. Without --image the prompt is sent as text only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGrade(cmd, root, o)
		},
	}

	cmd.Flags().StringVarP(&o.slot, "slot", "s", string(strategy.First), "slot to use (first or second)")
	cmd.Flags().StringVarP(&o.prompt, "prompt", "p", "", "prompt sent with the image")
	cmd.Flags().StringVarP(&o.image, "image", "i", "", `image file, or "-" to read stdin`)
	cmd.Flags().StringVar(&o.baseURL, "base-url", "", "override the slot's base URL")
	cmd.Flags().StringVar(&o.apiKey, "api-key", "", "override the slot's API key")
	cmd.Flags().StringVar(&o.modelID, "model", "", "override the slot's model ID")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func runGrade(cmd *cobra.Command, root *rootOptions, o *gradeOptions) error {
	slot, err := strategy.ParseSlot(o.slot)
	if err != nil {
		return err
	}

	image, err := readImage(o.image, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, app, err := root.load(ctx)
	if err != nil {
		return err
	}
	defer closeApp(cmd, app)

	ep, err := cfg.Slot(slot)
	if err != nil {
		return err
	}
	ep = overrideEndpoint(ep, o.baseURL, o.apiKey, o.modelID)

	out := cmd.OutOrStdout()
	answer, err := app.Engine.Call(ctx, slot, ep, image, o.prompt)
	if err != nil {
		if o.asJSON {
			fmt.Fprintln(out, cli.PrettyFormat(map[string]interface{}{
				"slot":  slot,
				"error": engine.Friendly(err),
				"kind":  engine.KindOf(err),
			}))
		}
		return errors.New(engine.Friendly(err))
	}

	if o.asJSON {
		fmt.Fprintln(out, cli.PrettyFormat(map[string]interface{}{
			"slot":   slot,
			"answer": answer,
		}))
		return nil
	}

	fmt.Fprintln(out, answer)
	return nil
}

func readImage(path string, stdin io.Reader) (string, error) {
	var (
		raw []byte
		err error
	)
	switch path {
	case "":
		return "", nil
	case "-":
		raw, err = io.ReadAll(stdin)
	default:
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(raw) == 0 {
		return "", errors.New("read image: empty input")
	}

	// already base64 or a data URI (piped from another tool)
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "data:image/") {
		return text, nil
	}
	if _, err := base64.StdEncoding.DecodeString(text); err == nil {
		return text, nil
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func overrideEndpoint(ep engine.Endpoint, baseURL, apiKey, modelID string) engine.Endpoint {
	if baseURL != "" {
		ep.BaseURL = baseURL
	}
	if apiKey != "" {
		ep.APIKey = apiKey
	}
	if modelID != "" {
		ep.ModelID = modelID
	}
	return ep
}
