package pipeline

import (
	"sort"

	"aduanas/internal"
	"aduanas/internal/util"
)

func isSentinel(value string) bool {
	switch value {
	case internal.SentinelNoEspecificado, internal.SentinelNoEspecificada, internal.SentinelNoTiene, internal.SentinelNotApplicable:
		return true
	}
	return false
}

// SummarizeDeclarations groups records by acceptance number, in the order the
// declarations first appear.
func SummarizeDeclarations(records []internal.ExtractedRecord) []internal.DeclarationSummary {
	index := map[string]int{}
	var out []internal.DeclarationSummary
	brands := map[string]*util.OrderedSet[string]{}
	products := map[string]*util.OrderedSet[string]{}

	for _, r := range records {
		i, ok := index[r.AcceptanceNumber]
		if !ok {
			i = len(out)
			index[r.AcceptanceNumber] = i
			out = append(out, internal.DeclarationSummary{AcceptanceNumber: r.AcceptanceNumber, Steps: r.StepMeasure})
			brands[r.AcceptanceNumber] = util.NewOrderedSet[string]()
			products[r.AcceptanceNumber] = util.NewOrderedSet[string]()
		}
		s := &out[i]
		s.Records++
		s.TotalQuantity += r.Quantity
		s.HasChain = s.HasChain || r.IsChain
		if !isSentinel(r.Brand) {
			brands[r.AcceptanceNumber].Add(r.Brand)
		}
		if !isSentinel(r.Product) {
			products[r.AcceptanceNumber].Add(r.Product)
		}
	}
	for i := range out {
		out[i].Brands = brands[out[i].AcceptanceNumber].Values()
		out[i].Products = products[out[i].AcceptanceNumber].Values()
	}
	return out
}

func ComputeStatistics(records []internal.ExtractedRecord) internal.Statistics {
	stats := internal.Statistics{Records: len(records), Brands: []string{}}
	decls := SummarizeDeclarations(records)
	stats.Declarations = len(decls)

	brandSet := map[string]struct{}{}
	for _, r := range records {
		stats.TotalUnits += r.Quantity
		if r.IsChain {
			stats.ChainRecords++
		}
		if !isSentinel(r.Brand) {
			brandSet[r.Brand] = struct{}{}
		}
	}
	for b := range brandSet {
		stats.Brands = append(stats.Brands, b)
	}
	sort.Strings(stats.Brands)
	stats.UniqueBrands = len(stats.Brands)

	for _, d := range decls {
		if d.HasChain {
			stats.DeclarationsWithChains++
		}
		if d.Records > stats.MaxRecordsPerDeclaration {
			stats.MaxRecordsPerDeclaration = d.Records
			stats.MaxRecordsDeclaration = d.AcceptanceNumber
		}
	}
	if stats.Declarations > 0 {
		stats.AvgRecordsPerDeclaration = float64(stats.Records) / float64(stats.Declarations)
	}
	if stats.Records > 0 {
		stats.AvgUnitsPerRecord = float64(stats.TotalUnits) / float64(stats.Records)
	}
	return stats
}
