package bypass

import "github.com/Rudd3r/nftroute/pkg/domain"

// Filter returns the bypass set: every extracted domain that is not already
// routed directly. Matching is by exact string.
func Filter(extracted, direct *domain.DomainSet) *domain.DomainSet {
	return extracted.Difference(direct)
}
