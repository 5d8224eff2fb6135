package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/beadprep/internal/calib"
	"github.com/shaiso/beadprep/internal/config"
	"github.com/shaiso/beadprep/internal/domain"
)

// runFlags — параметры протокола из флагов и файла параметров.
type runFlags struct {
	paramsFile   string
	samples      int
	sampleVolume float64
	beadRatio    float64
	washCycles   int
	elution      float64
	profile      string
	profilesFile string
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.paramsFile, "params", "", "YAML parameter file (params, layout, profile)")
	fl.IntVar(&f.samples, "samples", domain.DefaultSampleCount, "Number of samples (1-96)")
	fl.Float64Var(&f.sampleVolume, "sample-volume", domain.DefaultSampleVolume, "Sample volume per well, µl")
	fl.Float64Var(&f.beadRatio, "bead-ratio", domain.DefaultBeadRatio, "Bead to sample volume ratio")
	fl.IntVar(&f.washCycles, "wash-cycles", domain.DefaultWashCycleCount, "Ethanol wash cycles")
	fl.Float64Var(&f.elution, "elution-volume", domain.DefaultElutionVolume, "Elution buffer volume, µl")
	bindProfileFlags(cmd, &f.profile, &f.profilesFile)
}

func bindProfileFlags(cmd *cobra.Command, profile, profilesFile *string) {
	cmd.Flags().StringVar(profile, "profile", "", "Calibration profile name (default "+calib.DefaultProfileName+")")
	cmd.Flags().StringVar(profilesFile, "profiles", "", "YAML file with extra calibration profiles")
}

// resolve собирает параметры: значения по умолчанию, затем файл,
// затем явно заданные флаги.
func (f *runFlags) resolve(cmd *cobra.Command) (config.RunFile, calib.Profile, error) {
	rf := config.DefaultRunFile()
	if f.paramsFile != "" {
		var err error
		if rf, err = config.LoadParamsFile(f.paramsFile); err != nil {
			return rf, calib.Profile{}, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("samples") {
		rf.Params.SampleCount = f.samples
	}
	if fl.Changed("sample-volume") {
		rf.Params.SampleVolume = f.sampleVolume
	}
	if fl.Changed("bead-ratio") {
		rf.Params.BeadRatio = f.beadRatio
	}
	if fl.Changed("wash-cycles") {
		rf.Params.WashCycleCount = f.washCycles
	}
	if fl.Changed("elution-volume") {
		rf.Params.ElutionVolume = f.elution
	}
	if err := rf.Params.Validate(); err != nil {
		return rf, calib.Profile{}, err
	}

	name := f.profile
	if name == "" {
		name = rf.Profile
	}
	profile, err := loadProfile(name, f.profilesFile)
	return rf, profile, err
}

// loadProfile ищет профиль среди встроенных и загруженных из файла.
func loadProfile(name, profilesFile string) (calib.Profile, error) {
	profiles := calib.DefaultRegistry()
	if profilesFile != "" {
		if _, err := profiles.LoadProfiles(profilesFile); err != nil {
			return calib.Profile{}, err
		}
	}
	if name == "" {
		name = calib.DefaultProfileName
	}
	return profiles.Get(name)
}
