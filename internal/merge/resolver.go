// ABOUTME: Merge policy deciding between stored archive data and fetched data.
// ABOUTME: Archive wins by default; activity_summary always takes the fetched table.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/fitlog/internal/models"
)

// Decision is the outcome of resolving one (metric, day) partition.
type Decision string

const (
	KeepArchive Decision = "keep_archive"
	TakeFetched Decision = "take_fetched"
	Compose     Decision = "compose"
)

// Policy says which side wins when both archive and fetched data exist.
type Policy string

const (
	PolicyArchiveWins Policy = "archive_wins"
	PolicyFetchedWins Policy = "fetched_wins"
	PolicyCompose     Policy = "compose"
)

// DefaultPolicies holds the built-in per-metric policies. Metrics not listed
// use PolicyArchiveWins.
var DefaultPolicies = map[models.MetricType]Policy{
	models.MetricActivitySummary: PolicyFetchedWins,
}

// ParsePolicies validates a metric -> policy map read from config.
func ParsePolicies(raw map[string]string) (map[models.MetricType]Policy, error) {
	out := make(map[models.MetricType]Policy, len(raw))
	for name, p := range raw {
		if !models.IsValidMetricType(name) {
			return nil, &models.UnknownMetricError{Name: name}
		}
		switch Policy(strings.ToLower(p)) {
		case PolicyArchiveWins, PolicyFetchedWins, PolicyCompose:
			out[models.MetricType(name)] = Policy(strings.ToLower(p))
		default:
			return nil, fmt.Errorf("unknown merge policy %q for %s (use archive_wins, fetched_wins, or compose)", p, name)
		}
	}
	return out, nil
}

// Resolver applies per-metric policies.
type Resolver struct {
	policies map[models.MetricType]Policy
}

// NewResolver creates a resolver. Overrides replace the default policy for
// their metric.
func NewResolver(overrides map[models.MetricType]Policy) *Resolver {
	policies := make(map[models.MetricType]Policy, len(DefaultPolicies)+len(overrides))
	for m, p := range DefaultPolicies {
		policies[m] = p
	}
	for m, p := range overrides {
		policies[m] = p
	}
	return &Resolver{policies: policies}
}

// PolicyFor returns the policy used for a metric.
func (r *Resolver) PolicyFor(metric models.MetricType) Policy {
	if p, ok := r.policies[metric]; ok {
		return p
	}
	return PolicyArchiveWins
}

// Policies lists the explicit policies as metric=policy, sorted.
func (r *Resolver) Policies() []string {
	var out []string
	for m, p := range r.policies {
		out = append(out, fmt.Sprintf("%s=%s", m, p))
	}
	sort.Strings(out)
	return out
}

// Resolve decides which table becomes authoritative for (metric, day).
// A nil or empty archive table means the day is absent from the store.
func (r *Resolver) Resolve(metric models.MetricType, day models.Day, archive, fetched *models.DayTable) Decision {
	if archive.Empty() {
		return TakeFetched
	}
	switch r.PolicyFor(metric) {
	case PolicyFetchedWins:
		return TakeFetched
	case PolicyCompose:
		return Compose
	default:
		return KeepArchive
	}
}

var defaultResolver = NewResolver(nil)

// Resolve decides using the built-in policies.
func Resolve(metric models.MetricType, day models.Day, archive, fetched *models.DayTable) Decision {
	return defaultResolver.Resolve(metric, day, archive, fetched)
}
