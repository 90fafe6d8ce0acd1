package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/interceptors"
	"github.com/Keksclan/oncoannot/internal/app"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/Keksclan/oncoannot/tumor"
	"github.com/Keksclan/oncoannot/variant"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type analyzeOptions struct {
	requestFile string
	pseudonym   string
	diagnosis   string
	tumorType   string
	variants    []string
	biomarkers  []string
	remote      string
}

func (a *App) newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Annotate variants and print the report as JSON",
		Long: `Annotate the given variants for a tumor type and print the report.

The request is read from a JSON file (--request) or assembled from flags.
Without --remote the analysis runs in process against the configured cache
and sources.

Examples:
  oncoannot analyze --tumor "cáncer de colon" --variant KRAS:G12D
  oncoannot analyze --tumor melanoma --variant BRAF:V600E@7:140453136:A>T --biomarker PD-L1=50%
  oncoannot analyze --request req.json --remote localhost:50051`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			return a.analyze(cmd.Context(), opts.remote, req)
		},
	}

	cmd.Flags().StringVarP(&opts.requestFile, "request", "r", "", "JSON request file")
	cmd.Flags().StringVar(&opts.pseudonym, "pseudonym", "", "Patient pseudonym")
	cmd.Flags().StringVar(&opts.diagnosis, "diagnosis", "", "Free-text diagnosis")
	cmd.Flags().StringVarP(&opts.tumorType, "tumor", "t", "", "Tumor type")
	cmd.Flags().StringArrayVarP(&opts.variants, "variant", "v", nil, "Variant GENE:CHANGE[@CHROM:POS:REF>ALT] (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.biomarkers, "biomarker", "b", nil, "Biomarker NAME[=VALUE] (repeatable)")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "Analyze on a running server at this address")
	return cmd
}

func (o *analyzeOptions) request() (aggregate.Request, error) {
	var req aggregate.Request
	if o.requestFile != "" {
		raw, err := os.ReadFile(o.requestFile)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return req, fmt.Errorf("parse %s: %w", o.requestFile, err)
		}
	}
	if o.pseudonym != "" {
		req.Pseudonym = o.pseudonym
	}
	if o.diagnosis != "" {
		req.Diagnosis = o.diagnosis
	}
	if o.tumorType != "" {
		req.TumorType = o.tumorType
	}
	for _, s := range o.variants {
		v, err := parseVariant(s)
		if err != nil {
			return req, err
		}
		req.Variants = append(req.Variants, v)
	}
	for _, s := range o.biomarkers {
		name, value, _ := strings.Cut(s, "=")
		req.Biomarkers = append(req.Biomarkers, variant.Biomarker{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return req, nil
}

// parseVariant reads GENE:CHANGE with an optional @CHROM:POS:REF>ALT locus.
func parseVariant(s string) (variant.Variant, error) {
	spec, loc, hasLocus := strings.Cut(s, "@")
	gene, change, ok := strings.Cut(spec, ":")
	if !ok || strings.TrimSpace(gene) == "" || strings.TrimSpace(change) == "" {
		return variant.Variant{}, fmt.Errorf("variant %q: want GENE:CHANGE", s)
	}
	v := variant.Variant{Gene: strings.TrimSpace(gene), ProteinChange: strings.TrimSpace(change)}
	if hasLocus {
		l, err := parseLocus(loc)
		if err != nil {
			return variant.Variant{}, fmt.Errorf("variant %q: %w", s, err)
		}
		v.Locus = &l
	}
	return v, nil
}

func parseLocus(s string) (variant.Locus, error) {
	var l variant.Locus
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return l, errors.New("locus must be CHROM:POS:REF>ALT")
	}
	ref, alt, ok := strings.Cut(parts[2], ">")
	if !ok || ref == "" || alt == "" {
		return l, errors.New("locus must be CHROM:POS:REF>ALT")
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &l.Pos); err != nil || l.Pos <= 0 {
		return l, fmt.Errorf("invalid position %q", parts[1])
	}
	l.Chrom, l.Ref, l.Alt = parts[0], ref, alt
	return l, nil
}

func (a *App) analyze(ctx context.Context, remote string, req aggregate.Request) error {
	var (
		rep *aggregate.Report
		err error
	)
	if remote != "" {
		err = withClient(remote, func(c *rpc.Client) error {
			var cerr error
			rep, cerr = c.Analyze(ctx, req)
			if ve := rpc.ValidationErrorFromStatus(cerr); ve != nil {
				ve.Input = req.TumorType
				return ve
			}
			if d := interceptors.RetryDelay(cerr); d > 0 {
				return fmt.Errorf("%w (retry in %s)", cerr, d.Round(time.Second))
			}
			return cerr
		})
	} else {
		err = a.local(ctx, func(svc *app.App) error {
			var aerr error
			rep, aerr = svc.Aggregator.Analyze(ctx, req)
			return aerr
		})
	}

	var ve *tumor.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintln(a.stderr, ve.Message)
		for _, s := range ve.Suggestions {
			fmt.Fprintf(a.stderr, "  - %s\n", s)
		}
		return errors.New("invalid tumor type")
	}
	if err != nil {
		return err
	}
	return a.printJSON(rep)
}

// local runs fn against an in-process service built from the configuration.
func (a *App) local(ctx context.Context, fn func(*app.App) error) error {
	cfg, logger, closeLog, err := a.setup()
	if err != nil {
		return err
	}
	defer closeLog()

	svc, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return fn(svc)
}

func withClient(addr string, fn func(*rpc.Client) error) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	return fn(rpc.NewClient(conn))
}
