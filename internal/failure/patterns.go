package failure

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/hejijunhao/scalr/internal/model"
)

// KeywordPattern matches entries whose message contains any of its keywords,
// compared after NFKC normalization and Unicode case folding.
type KeywordPattern struct {
	category Category
	keywords []string // folded
}

// Keywords creates a KeywordPattern.
func Keywords(cat Category, keywords ...string) *KeywordPattern {
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		folded = append(folded, fold(k))
	}
	return &KeywordPattern{category: cat, keywords: folded}
}

func (p *KeywordPattern) Category() Category { return p.category }

func (p *KeywordPattern) Matches(e model.LogEntry) bool {
	msg := fold(e.Message())
	for _, k := range p.keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// ExitCodePattern matches script entries that exited with one of its codes.
type ExitCodePattern struct {
	category Category
	codes    []int
}

// ExitCodes creates an ExitCodePattern.
func ExitCodes(cat Category, codes ...int) *ExitCodePattern {
	return &ExitCodePattern{category: cat, codes: slices.Clone(codes)}
}

func (p *ExitCodePattern) Category() Category { return p.category }

func (p *ExitCodePattern) Matches(e model.LogEntry) bool {
	s, ok := e.(*model.ScriptLogItem)
	return ok && slices.Contains(p.codes, s.ExitCode())
}

// A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// Built-in categories.
var (
	S3Authentication = Category{
		Name:        "s3_authentication",
		Description: "S3 rejected the request credentials or signature",
		Remedy:      "Check the access key pair and clock skew on the server",
	}
	DiskFull = Category{
		Name:        "disk_full",
		Description: "A filesystem ran out of space or quota",
		Remedy:      "Free space or grow the volume",
	}
	PackageInstall = Category{
		Name:        "package_install",
		Description: "The system package manager failed",
		Remedy:      "Check package names, mirrors and concurrent package manager runs",
	}
	DNSResolution = Category{
		Name:        "dns_resolution",
		Description: "A hostname could not be resolved",
		Remedy:      "Check resolv.conf and the DNS zone",
	}
	PermissionDenied = Category{
		Name:        "permission_denied",
		Description: "The script lacked permission for a file or operation",
	}
	CommandNotFound = Category{
		Name:        "command_not_found",
		Description: "The script invoked a command that is not installed",
	}
	ScriptTimeout = Category{
		Name:        "script_timeout",
		Description: "The script or an operation inside it timed out",
	}
)

// DefaultPatterns returns the built-in pattern registry. Extend it by
// appending patterns; existing patterns are not modified.
func DefaultPatterns() []Pattern {
	return []Pattern{
		Keywords(S3Authentication,
			"SignatureDoesNotMatch",
			"InvalidAccessKeyId",
			"AWS was not able to validate the provided access credentials",
			"The request signature we calculated does not match the signature you provided",
			"The AWS Access Key Id you provided does not exist in our records",
		),
		Keywords(DiskFull,
			"No space left on device",
			"Disk quota exceeded",
		),
		Keywords(PackageInstall,
			"Unable to locate package",
			"dpkg: error processing",
			"Could not get lock /var/lib/dpkg",
			"E: Failed to fetch",
			"Error: Nothing to do",
		),
		Keywords(DNSResolution,
			"Could not resolve host",
			"Temporary failure in name resolution",
			"Name or service not known",
		),
		Keywords(PermissionDenied,
			"Permission denied",
			"Operation not permitted",
		),
		ExitCodes(CommandNotFound, 127),
		Keywords(ScriptTimeout,
			"execution timeout",
			"timed out",
		),
	}
}
