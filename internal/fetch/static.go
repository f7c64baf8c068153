package fetch

import (
	"context"

	"bidwatch/internal/model"
)

// staticBatch is the deterministic stand-in batch served when no API key is
// configured. The third entry is expected to be rejected by the filter.
var staticBatch = []model.Candidate{
	{
		ExternalID: "202405-001",
		Title:      "서울지방조달청 본관 실내건축 환경개선공사",
		Agency:     "서울지방조달청",
		PriceRaw:   "250000000",
		ClosingAt:  "2024-05-25 10:00",
		DetailLink: "#",
	},
	{
		ExternalID: "202405-002",
		Title:      "경기도 교육연수원 리모델링 공사",
		Agency:     "경기도교육청",
		PriceRaw:   "1520000000",
		ClosingAt:  "2024-05-28 14:00",
		DetailLink: "#",
	},
	{
		ExternalID: "202405-003",
		Title:      "[긴급] 서초구청사 폐기물 처리 용역",
		Agency:     "서초구청",
		PriceRaw:   "50000000",
		ClosingAt:  "2024-05-24 18:00",
		DetailLink: "#",
	},
}

// StaticFetcher returns a fixed batch on every call. Behaviourally
// indistinguishable from a live fetch to downstream components.
type StaticFetcher struct {
	batch []model.Candidate
}

// NewStaticFetcher returns a fetcher serving the built-in sample batch.
func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{batch: staticBatch}
}

// NewStaticFetcherWith returns a fetcher serving the given batch.
func NewStaticFetcherWith(batch []model.Candidate) *StaticFetcher {
	return &StaticFetcher{batch: batch}
}

// Fetch returns a copy of the configured batch.
func (f *StaticFetcher) Fetch(_ context.Context) ([]model.Candidate, error) {
	out := make([]model.Candidate, len(f.batch))
	copy(out, f.batch)
	return out, nil
}
