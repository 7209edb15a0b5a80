// Package constants provides shared constants used throughout the ppmi500 codebase.
// This includes the column vocabulary of the curated tables, default file and
// object store locations and file permissions.
package constants

import "time"

// ShutdownTimeout bounds the CLI cleanup after a failed command.
const ShutdownTimeout = 5 * time.Second

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Key columns shared by every table in the pipeline.
const (
	ColSubjectID = "subjectID"
	ColDate      = "date"
	ColImageID   = "imageID"
	ColModality  = "modality"
	ColFilename  = "filename"
)

// Demographic columns that the backfill chain fills.
const (
	ColAgeBL     = "age_BL"
	ColCommonSex = "commonSex"
	ColJoinedDX  = "joinedDX"
)

// ColHasHumanQC marks images with at least one consensus verdict.
const ColHasHumanQC = "has_humanqc"

// Metadata table columns.
const (
	ColMetaSubject       = "subjectIdentifier"
	ColMetaResearchGroup = "researchGroup"
	ColMetaVisit         = "visitIdentifier"
	ColMetaAge           = "subjectAge"
)

// DemographicColumns lists the subset kept from the wide demographic table, in output order.
var DemographicColumns = []string{
	ColSubjectID, ColFilename, ColAgeBL, ColCommonSex,
	"duration_yrs", "LEDD", "moca",
	"updrs1_score", "updrs2_score", "updrs3_score", "updrs3_score_on", "updrs4_score",
	"updrs_totscore", "updrs_totscore_on",
	ColJoinedDX, "AsynStatus", "educ", "race",
	"tau", "ptau", "abeta", "brainVolume",
}

// Domain values.
const (
	// VisitBaseline is the metadata visit used for age and diagnosis backfill
	VisitBaseline = "Baseline"

	// SexUnknown is reported when a subject document lacks the sex field
	SexUnknown = "Unknown"
	SexMale    = "Male"
	SexFemale  = "Female"

	// DefaultSexField is the JSON field holding the recorded sex code
	DefaultSexField = "PatientSex"
)

// Merge suffixes applied to colliding columns during a fallback fill.
const (
	SuffixLeft  = "_df1"
	SuffixRight = "_df2"
)

// Default input and output file names, relative to the data directory.
const (
	DefaultIdentityFile    = "ppmi500_ids_date.csv"
	DefaultDemographicFile = "antspymm_v1pt2pt7_PPMI_Curated_Data_Cut_Public_20230612_rev_OR.csv"
	DefaultQCOutputFile    = "mergedhumanqc_full.csv"
	DefaultOutputFile      = "PPMI500_demographic_QC.csv"
	DefaultMetadataFile    = "metadata.csv"
)

// DefaultQCFiles are the per-site reviewer tables.
var DefaultQCFiles = []string{
	"QC/ppmi500_AR.csv",
	"QC/ppmi500_LF.csv",
	"QC/ppmi500_BA.csv",
	"QC/ppmi500_XW.csv",
}

// Object store layout of the curated release.
const (
	DefaultS3Bucket      = "loni-data-curated-20230501"
	DefaultS3Region      = "us-east-1"
	DefaultSubjectPrefix = "ppmi_500/curated/data/PPMI/"
	DefaultMetadataKey   = "ppmi_500/curated/metadata/metadata.csv"
)

// DefaultLookupCacheSize bounds the subject sex lookup cache.
const DefaultLookupCacheSize = 512
