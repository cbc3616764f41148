package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/evilmagics/kitti/internal/array"
	"github.com/evilmagics/kitti/internal/config"
	"github.com/evilmagics/kitti/internal/datasets"
	"github.com/evilmagics/kitti/internal/metrics"
	"github.com/evilmagics/kitti/internal/readers"
	"github.com/evilmagics/kitti/internal/scaffold"
	"github.com/evilmagics/kitti/internal/utils"
)

func nameAndRoot(c *cli.Context) (scaffold.Name, string, error) {
	if c.NArg() != 2 {
		return "", "", errors.Wrapf(utils.ErrConfiguration, "expected <%s|%s|%s> <path>",
			scaffold.SyncRectified, scaffold.DepthCompletion, scaffold.DepthPrediction)
	}
	name, err := scaffold.ParseName(c.Args().Get(0))
	if err != nil {
		return "", "", err
	}
	return name, c.Args().Get(1), nil
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download and verify a dataset layout",
		ArgsUsage: "<sync_rectified|depth_completion|depth_prediction> <path>",
		Action: func(c *cli.Context) error {
			name, root, err := nameAndRoot(c)
			if err != nil {
				return err
			}
			s, err := conf(c).Scaffolder(afero.NewOsFs())
			if err != nil {
				return err
			}
			if err := s.Ensure(c.Context, name, root, true); err != nil {
				return err
			}
			log.Info().Str("dataset", string(name)).Str("root", root).Msg("Dataset ready")
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "List the paths missing from a dataset layout",
		ArgsUsage: "<sync_rectified|depth_completion|depth_prediction> <path>",
		Action: func(c *cli.Context) error {
			name, root, err := nameAndRoot(c)
			if err != nil {
				return err
			}
			s, err := conf(c).Scaffolder(afero.NewOsFs())
			if err != nil {
				return err
			}
			missing, err := s.Missing(name, root)
			if err != nil {
				return err
			}
			for _, p := range missing {
				fmt.Fprintln(c.App.Writer, p)
			}
			if len(missing) > 0 {
				return errors.Wrapf(utils.ErrScaffold, "%s: %d paths missing at %s", name, len(missing), root)
			}
			log.Info().Str("dataset", string(name)).Str("root", root).Msg("Dataset complete")
			return nil
		},
	}
}

type fieldInfo struct {
	Type  string `json:"type"`
	Shape []int  `json:"shape,omitempty"`
}

type inspection struct {
	Dataset string               `json:"dataset"`
	Len     int                  `json:"len"`
	Index   int                  `json:"index"`
	Fields  map[string]fieldInfo `json:"fields"`
}

func describe(v any) fieldInfo {
	switch x := v.(type) {
	case *array.Array:
		return fieldInfo{Type: "array", Shape: x.Shape}
	case *mat.Dense:
		r, c := x.Dims()
		return fieldInfo{Type: "matrix", Shape: []int{r, c}}
	case *readers.CamCalib:
		return fieldInfo{Type: "calibration"}
	case *readers.IMUData:
		return fieldInfo{Type: "imu"}
	}
	return fieldInfo{Type: fmt.Sprintf("%T", v)}
}

// checkRoots validates the roots and subset of a dataset before opening it.
// The raw root is needed by every dataset except the depth test subset,
// which ships its own images.
func checkRoots(name scaffold.Name, raw, root, subset string) error {
	split := utils.FindSplit(subset)
	if split == nil {
		return errors.Wrapf(utils.ErrConfiguration, "unknown subset %q", subset)
	}
	if name != scaffold.SyncRectified && root == "" {
		return errors.Wrapf(utils.ErrConfiguration, "%s needs --root", name)
	}
	if raw == "" && (name == scaffold.SyncRectified || *split != utils.SplitTest) {
		return errors.Wrapf(utils.ErrConfiguration, "%s %s needs --raw", name, *split)
	}
	return nil
}

func openDataset(ctx context.Context, c *cli.Context, name scaffold.Name) (datasets.Dataset, error) {
	fs := afero.NewOsFs()
	s, err := conf(c).Scaffolder(fs)
	if err != nil {
		return nil, err
	}

	var previous datasets.Previous
	if n := c.Int("previous"); n != 0 {
		previous = datasets.PreviousFrame(n)
	}

	if name == scaffold.SyncRectified {
		return datasets.NewRaw(ctx, c.String("raw"), datasets.RawOptions{
			Previous:   previous,
			Download:   c.Bool("download"),
			Fs:         fs,
			Scaffolder: s,
		})
	}

	opts := datasets.DepthOptions{
		Subset:         utils.Split(c.String("subset")),
		LoadStereo:     c.Bool("stereo"),
		LoadIntrinsics: c.Bool("intrinsics"),
		Previous:       previous,
		Download:       c.Bool("download"),
		Fs:             fs,
		Scaffolder:     s,
	}
	if name == scaffold.DepthPrediction {
		return datasets.NewDepthPrediction(ctx, c.String("raw"), c.String("root"), opts)
	}
	return datasets.NewDepthCompletion(ctx, c.String("raw"), c.String("root"), opts)
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Decode one sample and print its fields as JSON",
		ArgsUsage: "<sync_rectified|depth_completion|depth_prediction>",
		Flags:     config.DatasetFlags(),
		Action: func(c *cli.Context) error {
			name, err := scaffold.ParseName(c.Args().First())
			if err != nil {
				return err
			}
			if err := checkRoots(name, c.String("raw"), c.String("root"), c.String("subset")); err != nil {
				return err
			}

			ds, err := openDataset(c.Context, c, name)
			if err != nil {
				return err
			}
			idx := c.Int("index")
			s, err := ds.Get(idx)
			if err != nil {
				return err
			}

			out := inspection{Dataset: string(name), Len: ds.Len(), Index: idx, Fields: map[string]fieldInfo{}}
			for k, v := range s {
				out.Fields[k] = describe(v)
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, string(b))
			return err
		},
	}
}

func evalCommand() *cli.Command {
	return &cli.Command{
		Name:  "eval",
		Usage: "Evaluate depth PNG predictions against ground truth with the same file names",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pred", Usage: "predictions `DIR`", Required: true},
			&cli.StringFlag{Name: "gt", Usage: "ground truth `DIR`", Required: true},
		},
		Action: func(c *cli.Context) error {
			fs := afero.NewOsFs()
			predDir, gtDir := c.String("pred"), c.String("gt")

			var preds []string
			err := afero.Walk(fs, predDir, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && strings.HasSuffix(p, ".png") {
					preds = append(preds, p)
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(utils.ErrConfiguration, "list %s: %v", predDir, err)
			}
			if len(preds) == 0 {
				return errors.Wrapf(utils.ErrConfiguration, "no predictions in %s", predDir)
			}

			mapper := iter.Mapper[string, *metrics.Report]{MaxGoroutines: conf(c).Workers}
			reports, err := mapper.MapErr(preds, func(p *string) (*metrics.Report, error) {
				rel, err := filepath.Rel(predDir, *p)
				if err != nil {
					return nil, err
				}
				r, err := evaluateFile(fs, *p, filepath.Join(gtDir, rel))
				if err == nil {
					log.Debug().Str("frame", utils.Filename(*p)).Float64("rmse", r.RMSE).Msg("Prediction evaluated")
				}
				return r, err
			})
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(metrics.Mean(reports), "", "  ")
			if err != nil {
				return err
			}
			log.Info().Int("files", len(reports)).Msg("Predictions evaluated")
			_, err = fmt.Fprintln(c.App.Writer, string(b))
			return err
		},
	}
}

func evaluateFile(fs afero.Fs, predPath, gtPath string) (*metrics.Report, error) {
	pred, err := readers.LoadDepth(fs, predPath)
	if err != nil {
		return nil, err
	}
	gt, err := readers.LoadDepth(fs, gtPath)
	if err != nil {
		return nil, errors.Wrapf(utils.ErrConsistency, "ground truth for %s: %v", predPath, err)
	}
	return metrics.Evaluate(pred, gt, nil)
}
