package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/posehold/internal/app"
	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/detector"
	"github.com/ayusman/posehold/internal/log"
)

var importCmd = &cobra.Command{
	Use:   "import <sequence.yaml>",
	Short: "Replace the pose catalog with a sequence file",
	Long: `Reads a YAML sequence file and stores its poses as the catalog, in
order. Cached reference landmarks of poses that remain are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		seq, err := challenge.LoadSequenceFile(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Poses().ReplaceAll(app.CatalogFromSequence(seq)); err != nil {
			return fmt.Errorf("replace catalog: %w", err)
		}

		log.Info("catalog imported", "file", args[0], "poses", len(seq))
		return nil
	},
}

var detectSave string

func init() {
	detectCmd.Flags().StringVar(&detectSave, "save", "", "store the result as the reference of this pose id")
}

type detectOutput struct {
	Image  string             `json:"image"`
	Score  float64            `json:"score"`
	Points []detector.Point3D `json:"points"`
}

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Print the landmarks detected in a still image as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		dc := detector.DefaultConfig()
		dc.StaticImageMode = true
		d, err := detector.NewMediaPipeDetector(dc)
		if err != nil {
			return fmt.Errorf("start detector: %w", err)
		}
		defer d.Close()

		lm, err := detector.DetectImage(d, path)
		if err != nil {
			return err
		}
		if lm == nil {
			return fmt.Errorf("%w: %s", app.ErrNoBodyInImage, path)
		}

		if detectSave != "" {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.References().Save(app.ReferenceFromLandmarks(detectSave, path, lm)); err != nil {
				return fmt.Errorf("save reference: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved reference for %s\n", detectSave)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detectOutput{Image: path, Score: lm.Score, Points: lm.Points[:]})
	},
}
