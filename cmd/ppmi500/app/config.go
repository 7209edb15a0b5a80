package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/agentstation/ppmi500/internal/cmd/inputs"
	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
)

// Metadata source kinds.
const (
	SourceS3    = "s3"
	SourceLocal = "local"
	SourceNone  = "none"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Data layout
	DataDir         string
	IdentityFile    string
	DemographicFile string
	QCFiles         []string
	QCOutputFile    string
	OutputFile      string
	ProvenanceFile  string

	// Remote collaborator
	MetadataSource  string
	S3Bucket        string
	S3Region        string
	S3SubjectPrefix string
	S3MetadataKey   string
	LocalRoot       string
	SexField        string
	LookupCacheSize int

	// Curation
	SexCodes map[string]string
	StrictQC bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.ppmi500.yaml or ./.ppmi500.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig("")
}

func loadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errors.ConfigError{Component: "config", Message: "reading " + configFile, Err: err}
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".ppmi500")
		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	codes, err := parseCodes(v.Get("sex_codes"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		DataDir:         v.GetString("data_dir"),
		IdentityFile:    v.GetString("identity_file"),
		DemographicFile: v.GetString("demographic_file"),
		QCFiles:         splitList(v.GetStringSlice("qc_files")),
		QCOutputFile:    v.GetString("qc_output_file"),
		OutputFile:      v.GetString("output_file"),
		ProvenanceFile:  v.GetString("provenance_file"),

		MetadataSource:  strings.ToLower(v.GetString("metadata_source")),
		S3Bucket:        v.GetString("s3_bucket"),
		S3Region:        v.GetString("s3_region"),
		S3SubjectPrefix: v.GetString("s3_subject_prefix"),
		S3MetadataKey:   v.GetString("s3_metadata_key"),
		LocalRoot:       v.GetString("local_root"),
		SexField:        v.GetString("sex_field"),
		LookupCacheSize: v.GetInt("lookup_cache_size"),

		SexCodes: codes,
		StrictQC: v.GetBool("strict_qc"),

		// Logging configuration
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("identity_file", constants.DefaultIdentityFile)
	v.SetDefault("demographic_file", constants.DefaultDemographicFile)
	v.SetDefault("qc_files", constants.DefaultQCFiles)
	v.SetDefault("qc_output_file", constants.DefaultQCOutputFile)
	v.SetDefault("output_file", constants.DefaultOutputFile)
	v.SetDefault("metadata_source", SourceS3)
	v.SetDefault("s3_bucket", constants.DefaultS3Bucket)
	v.SetDefault("s3_region", constants.DefaultS3Region)
	v.SetDefault("s3_subject_prefix", constants.DefaultSubjectPrefix)
	v.SetDefault("s3_metadata_key", constants.DefaultMetadataKey)
	v.SetDefault("local_root", "mirror")
	v.SetDefault("sex_field", constants.DefaultSexField)
	v.SetDefault("sex_codes", "M="+constants.SexMale)
	v.SetDefault("lookup_cache_size", constants.DefaultLookupCacheSize)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.MetadataSource {
	case SourceS3, SourceLocal, SourceNone:
	default:
		return &errors.ConfigError{
			Component: "metadata_source",
			Message:   "must be one of: s3, local, none; got " + c.MetadataSource,
		}
	}
	if c.LookupCacheSize < 0 {
		return &errors.ConfigError{Component: "lookup_cache_size", Message: "cannot be negative"}
	}
	if len(c.QCFiles) == 0 {
		return &errors.ConfigError{Component: "qc_files", Message: "at least one QC file is required"}
	}
	return nil
}

// Files returns the configured file names.
func (c *Config) Files() inputs.Files {
	return inputs.Files{
		Identity:    c.IdentityFile,
		Demographic: c.DemographicFile,
		QC:          c.QCFiles,
		QCOutput:    c.QCOutputFile,
		Output:      c.OutputFile,
		Provenance:  c.ProvenanceFile,
	}
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// parseCodes reads the sex code map from "CODE=Label" pairs, given either as
// one comma separated string (env) or as a YAML list. A YAML mapping is also
// accepted, though viper lowercases its keys.
func parseCodes(raw any) (map[string]string, error) {
	var pairs []string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		pairs = strings.Split(v, ",")
	case []string, []any:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, &errors.ConfigError{Component: "sex_codes", Message: "expected CODE=Label pairs", Err: err}
		}
		pairs = list
	default:
		codes, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return nil, &errors.ConfigError{Component: "sex_codes", Message: "expected a mapping", Err: err}
		}
		return codes, nil
	}

	codes := make(map[string]string)
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		from, to, found := strings.Cut(pair, "=")
		if !found {
			return nil, &errors.ConfigError{Component: "sex_codes", Message: "expected CODE=Label, got " + pair}
		}
		codes[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return codes, nil
}

// splitList also accepts comma separated values, as QC_FILES=a.csv,b.csv.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// Missing files are ignored; variables already set win
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
