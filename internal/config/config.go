// Package config holds the pipeline configuration: file locations, the static
// IntaRNA parameters, window sizes for every stage and the task switches of
// the top-level driver.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config is the whole pipeline configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Static  Static        `yaml:"static"`
	IntaRNA IntaRNAConfig `yaml:"intarna"`
	MRRI    MRRIConfig    `yaml:"mrri"`
	LocARNA LocARNAConfig `yaml:"locarna"`
	CM      CMConfig      `yaml:"cm"`
	Tasks   Tasks         `yaml:"tasks"`

	// Workers bounds the number of genomes processed concurrently.
	Workers int `yaml:"workers"`
}

// PathsConfig lists every input and output location of the pipeline.
type PathsConfig struct {
	Database       string `yaml:"database"`
	Results        string `yaml:"results"`
	StaticParams   string `yaml:"static_params"`
	ParameterTable string `yaml:"parameter_table"`
	IntaRNARaw     string `yaml:"intarna_raw"`
	IntaRNAOutput  string `yaml:"intarna_output"`
	Stockholm      string `yaml:"stockholm"`
	Covariance     string `yaml:"covariance"`
	CMOutput       string `yaml:"cm_output"`
	CMSearch       string `yaml:"cm_search"`
	UTR3Fasta      string `yaml:"utr3_fasta"`
	MRRIRaw1       string `yaml:"mrri_raw_1"`
	MRRIRaw2       string `yaml:"mrri_raw_2"`
	MRRIOutput1    string `yaml:"mrri_output_1"`
	MRRIOutput2    string `yaml:"mrri_output_2"`
	LocARNA        string `yaml:"locarna"`
	LocARNAMode2   string `yaml:"locarna_mrri_cm"`
	LocARNAMode3   string `yaml:"locarna_mrri_inter"`
	LocARNACarna   string `yaml:"locarna_mrri_carna"`
	Lineplot       string `yaml:"lineplot"`
	MRRILineplot1  string `yaml:"mrri_lineplot_1"`
	MRRILineplot2  string `yaml:"mrri_lineplot_2"`
	Meme           string `yaml:"meme"`
	AminoAcids     string `yaml:"amino_acids"`
}

// Static holds the IntaRNA parameters shared by every call. They are written
// once to the parameter file handed to IntaRNA via --parameterFile.
type Static map[string]string

// IntaRNAConfig configures the plain predictor runs.
type IntaRNAConfig struct {
	Binary string `yaml:"binary"`

	// ExtraBases is the number of CDS bases appended to each UTR.
	ExtraBases int `yaml:"extra_bases"`

	// ExtraBasesROI is the part of ExtraBases interactions may fall into.
	ExtraBasesROI int `yaml:"extra_bases_roi"`

	// OutNumber allows OutNumber-1 suboptimal interactions.
	OutNumber int `yaml:"out_number"`
}

// MRRIConfig configures the multi-round search.
type MRRIConfig struct {
	MaxRounds int     `yaml:"max_rounds"`
	MaxEnergy float64 `yaml:"max_energy"`

	// StopOnEnergyIncrease ends the search at the first round whose hybrid
	// energy is higher than the previous round's.
	StopOnEnergyIncrease bool `yaml:"stop_on_energy_increase"`

	// Mode 2 windows, relative to the UTR5/CDS transition (target) and to
	// the 3' end of the 3'UTR (query).
	TargetLeft   int `yaml:"target_left"`
	TargetRight  int `yaml:"target_right"`
	QueryFromEnd int `yaml:"query_from_end"`
	QueryToEnd   int `yaml:"query_to_end"`
}

// LocARNAConfig configures constraint synthesis and the alignment tools.
type LocARNAConfig struct {
	MLocarna   string   `yaml:"mlocarna"`
	RNAalifold string   `yaml:"rnaalifold"`
	PsToPdf    string   `yaml:"ps2pdf"`
	Width      int      `yaml:"width"`
	CarnaArgs  []string `yaml:"carna_args"`

	CDSLeft     int `yaml:"cds_left"`
	CDSRight    int `yaml:"cds_right"`
	Query3Width int `yaml:"query3_width"`

	// PinnedLabels are always converted to brackets in mode 3.
	PinnedLabels int `yaml:"pinned_labels"`

	// SplitClasses are grouped by their type (minus its last letter)
	// instead of by class.
	SplitClasses []string `yaml:"split_classes"`

	// CombinedGroups are additional alignments of several groups.
	CombinedGroups map[string][]string `yaml:"combined_groups"`

	Temperature float64 `yaml:"temperature"`
}

// CMConfig configures the Infernal binaries.
type CMConfig struct {
	CMBuild     string `yaml:"cmbuild"`
	CMCalibrate string `yaml:"cmcalibrate"`
	CMSearch    string `yaml:"cmsearch"`
	Calibrate   bool   `yaml:"calibrate"`
}

// Tasks switches the pipeline steps on and off.
type Tasks map[string]bool

// Enabled reports whether the named task is switched on.
func (t Tasks) Enabled(name string) bool {
	return t[name]
}

// Default returns the configuration the flavivirus study was run with.
func Default() *Config {
	results := "Results"
	return &Config{
		Paths: PathsConfig{
			Database:       "Data/Flavivirus_NCBI/Flavivirus_RefSeq_20231111",
			Results:        results,
			StaticParams:   "Data/static_parameter.cfg",
			ParameterTable: "Data/parameter_table.csv",
			IntaRNARaw:     filepath.Join(results, "IntaRNA_raw_output.txt"),
			IntaRNAOutput:  filepath.Join(results, "IntaRNA_output.csv"),
			Stockholm:      "Data/Flavivirus_Stockholm",
			Covariance:     "Data/Flavivirus_Covariance",
			CMOutput:       filepath.Join(results, "cm_search"),
			CMSearch:       filepath.Join(results, "cm_search", "Inta_plus_CM.csv"),
			UTR3Fasta:      filepath.Join(results, "cm_search", "all_3UTR.fa"),
			MRRIRaw1:       filepath.Join(results, "MRRI_raw_output_1.txt"),
			MRRIRaw2:       filepath.Join(results, "MRRI_raw_output_2.txt"),
			MRRIOutput1:    filepath.Join(results, "MRRI_output_1.csv"),
			MRRIOutput2:    filepath.Join(results, "MRRI_output_2.csv"),
			LocARNA:        filepath.Join(results, "locARNA"),
			LocARNAMode2:   filepath.Join(results, "locARNA_with_MRRI_only_cm_pos"),
			LocARNAMode3:   filepath.Join(results, "locARNA_with_MRRI_only_inter"),
			LocARNACarna:   filepath.Join(results, "locARNA_with_MRRI_crossing"),
			Lineplot:       filepath.Join(results, "interaction_lineplot.png"),
			MRRILineplot1:  filepath.Join(results, "interaction_lineplot_MRRI_1.png"),
			MRRILineplot2:  filepath.Join(results, "interaction_lineplot_MRRI_2.png"),
			Meme:           filepath.Join(results, "MEME"),
			AminoAcids:     filepath.Join(results, "AminoAcids.fa"),
		},
		Static: Static{
			"energyVRNA":  "Data/rna_andronescu2007.par",
			"intLenMax":   "20",
			"seedBP":      "5",
			"accW":        "50",
			"accL":        "50",
			"temperature": "18",
		},
		IntaRNA: IntaRNAConfig{
			Binary:        "IntaRNA",
			ExtraBases:    200,
			ExtraBasesROI: 100,
			OutNumber:     4,
		},
		MRRI: MRRIConfig{
			MaxRounds:            3,
			MaxEnergy:            0,
			StopOnEnergyIncrease: true,
			TargetLeft:           40,
			TargetRight:          70,
			QueryFromEnd:         140,
			QueryToEnd:           50,
		},
		LocARNA: LocARNAConfig{
			MLocarna:     "mlocarna",
			RNAalifold:   "RNAalifold",
			PsToPdf:      "ps2pdf",
			Width:        300,
			CarnaArgs:    []string{"--pw-aligner=carna"},
			CDSLeft:      40,
			CDSRight:     70,
			Query3Width:  141,
			PinnedLabels: 2,
			SplitClasses: []string{"ISFV"},
			CombinedGroups: map[string][]string{
				"dISFV+TBFV": {"dISFV", "TBFV"},
				"MBFV+dISFV": {"MBFV", "dISFV"},
				"MBFV+TBFV":  {"MBFV", "TBFV"},
			},
			Temperature: 18,
		},
		CM: CMConfig{
			CMBuild:     "cmbuild",
			CMCalibrate: "cmcalibrate",
			CMSearch:    "cmsearch",
			Calibrate:   true,
		},
		Tasks: Tasks{
			TaskParameterTables: true,
			TaskIntaRNA:         true,
			TaskCreateCMs:       false, // calibrating takes very long
			TaskCMSearch:        true,
			TaskIntaRNAPlots:    true,
			TaskMemePrep:        true,
			TaskLocARNA:         true,
			TaskMRRI1:           true,
			TaskMRRI2:           true,
			TaskLocARNAMRRI:     true,
			TaskLocARNACarna:    true,
			TaskMRRIPlots:       true,
			TaskMemeLineplots:   false, // needs MEME or GLAM2 reports under paths.meme
			TaskProteins:        true,
			TaskConsensus:       true,
		},
		Workers: 4,
	}
}

// Task names, in the order the driver runs them.
const (
	TaskParameterTables = "create_parameter_tables"
	TaskIntaRNA         = "run_intarna"
	TaskCreateCMs       = "create_cms"
	TaskCMSearch        = "run_cm_search"
	TaskIntaRNAPlots    = "draw_intarna_plots"
	TaskMemePrep        = "meme_prep"
	TaskLocARNA         = "run_locarna"
	TaskMRRI1           = "run_mrri_1"
	TaskMRRI2           = "run_mrri_2"
	TaskLocARNAMRRI     = "locarna_mrri"
	TaskLocARNACarna    = "locarna_mrri_carna"
	TaskMRRIPlots       = "draw_mrri_plots"
	TaskMemeLineplots   = "meme_lineplots"
	TaskProteins        = "cds_to_proteins"
	TaskConsensus       = "consensus"
)

// TaskOrder lists every task in dependency order.
var TaskOrder = []string{
	TaskParameterTables,
	TaskIntaRNA,
	TaskCreateCMs,
	TaskCMSearch,
	TaskIntaRNAPlots,
	TaskMemePrep,
	TaskLocARNA,
	TaskMRRI1,
	TaskMRRI2,
	TaskLocARNAMRRI,
	TaskLocARNACarna,
	TaskMRRIPlots,
	TaskMemeLineplots,
	TaskProteins,
	TaskConsensus,
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	in := c.IntaRNA
	if in.ExtraBases < 0 || in.ExtraBasesROI < 0 {
		return fmt.Errorf("extra bases must not be negative")
	}
	if in.ExtraBasesROI > in.ExtraBases {
		return fmt.Errorf("extra_bases_roi (%d) exceeds extra_bases (%d)", in.ExtraBasesROI, in.ExtraBases)
	}
	// Suboptimal runs return up to 2*out_number-1 predictions, one label each.
	if in.OutNumber < 1 || 2*in.OutNumber-1 > 23 {
		return fmt.Errorf("out_number must be within 1..12, got %d", in.OutNumber)
	}
	if c.MRRI.MaxRounds < 1 || c.MRRI.MaxRounds > 23 {
		return fmt.Errorf("max_rounds must be within 1..23, got %d", c.MRRI.MaxRounds)
	}
	if c.MRRI.QueryFromEnd < c.MRRI.QueryToEnd {
		return fmt.Errorf("query_from_end (%d) must not be smaller than query_to_end (%d)", c.MRRI.QueryFromEnd, c.MRRI.QueryToEnd)
	}
	if c.LocARNA.CDSRight < 3 {
		return fmt.Errorf("cds_right must leave room for the start codon anchor, got %d", c.LocARNA.CDSRight)
	}
	if c.LocARNA.CDSLeft < 0 || c.LocARNA.Query3Width < 1 {
		return fmt.Errorf("locarna windows must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	for name := range c.Tasks {
		if !KnownTask(name) {
			return fmt.Errorf("unknown task '%s'", name)
		}
	}
	return nil
}

// KnownTask reports whether name is a pipeline task.
func KnownTask(name string) bool {
	for _, t := range TaskOrder {
		if t == name {
			return true
		}
	}
	return false
}

// Lines renders the static parameters in IntaRNA parameter file syntax,
// sorted by name.
func (s Static) Lines() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s = %s", k, s[k]))
	}
	return lines
}
