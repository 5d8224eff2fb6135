package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/beadprep/internal/calib"
	"github.com/shaiso/beadprep/internal/liquid"
)

// defaultSteps — число порций ступенчатого дозирования, как при промывке.
const defaultSteps = 10

// HeightPlan — результат команды height.
type HeightPlan struct {
	Profile string        `json:"profile"`
	Volume  float64       `json:"volume"`
	Height  float64       `json:"height"`
	Steps   []liquid.Step `json:"steps"`
}

// NewHeightCmd создаёт команду расчёта высоты жидкости.
func NewHeightCmd(outputFn func() *Output) *cobra.Command {
	var volume float64
	var steps int
	var profileName, profilesFile string

	cmd := &cobra.Command{
		Use:   "height",
		Short: "Estimate liquid height and the stepwise dispense plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile(profileName, profilesFile)
			if err != nil {
				return err
			}

			plan, err := liquid.StepPlan(volume, steps, profile)
			if err != nil {
				return err
			}
			result := HeightPlan{
				Profile: profile.Name,
				Volume:  volume,
				Height:  profile.Height(volume),
				Steps:   plan,
			}

			out := outputFn()
			if !out.JSONMode() {
				out.Line("%s: %.1f µl -> %.2f mm", result.Profile, result.Volume, result.Height)
			}

			rows := make([][]string, len(plan))
			for i, s := range plan {
				rows[i] = []string{
					strconv.Itoa(i + 1),
					fmt.Sprintf("%.2f", s.Volume),
					fmt.Sprintf("%.2f", s.Cumulative),
					fmt.Sprintf("%.2f", s.Height),
				}
			}
			out.Print([]string{"STEP", "VOLUME_UL", "CUMULATIVE_UL", "HEIGHT_MM"}, rows, result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 0, "Total volume to dispense, µl")
	cmd.Flags().IntVar(&steps, "steps", defaultSteps, "Number of dispense steps")
	bindProfileFlags(cmd, &profileName, &profilesFile)
	cmd.MarkFlagRequired("volume")
	return cmd
}

// NewProfilesCmd создаёт команду списка калибровочных профилей.
func NewProfilesCmd(outputFn func() *Output) *cobra.Command {
	var profilesFile string

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List calibration profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := calib.DefaultRegistry()
			if profilesFile != "" {
				if _, err := reg.LoadProfiles(profilesFile); err != nil {
					return err
				}
			}

			profiles := reg.List()
			rows := make([][]string, len(profiles))
			for i, p := range profiles {
				rows[i] = []string{
					p.Name,
					strconv.FormatFloat(p.A, 'g', -1, 64),
					strconv.FormatFloat(p.B, 'g', -1, 64),
					strconv.FormatFloat(p.C, 'g', -1, 64),
					strconv.FormatFloat(p.Margin, 'g', -1, 64),
					fmt.Sprintf("%.2f", p.Height(0)),
				}
			}
			outputFn().Print([]string{"NAME", "A", "B", "C", "MARGIN", "EMPTY_MM"}, rows, profiles)
			return nil
		},
	}

	cmd.Flags().StringVar(&profilesFile, "profiles", "", "YAML file with extra calibration profiles")
	return cmd
}
