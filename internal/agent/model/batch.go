package model

import "sort"

// SliceGroup is one named group of parallel execution slices within a
// dataset. Group order and slice order follow the catalog declaration.
type SliceGroup struct {
	Name   string   `json:"name"`
	Slices []string `json:"slices"`
}

// DatasetDef is one pipeline within a batch.
type DatasetDef struct {
	DatasetID     string       `json:"dataset_id"`
	SequenceOrder int          `json:"sequence_order"`
	SliceGroups   []SliceGroup `json:"slice_groups,omitempty"`
}

// AllSlices flattens every slice group into a single list, preserving
// declaration order.
func (d DatasetDef) AllSlices() []string {
	if len(d.SliceGroups) == 0 {
		return nil
	}
	var slices []string
	for _, g := range d.SliceGroups {
		slices = append(slices, g.Slices...)
	}
	return slices
}

// BatchDefinition describes a named batch workload: its catalog name, its
// display name, and the ordered datasets it is made of. Treated as immutable
// once received from the catalog.
type BatchDefinition struct {
	EssentialName string       `json:"essential_name"`
	DisplayName   string       `json:"display_name"`
	Context       string       `json:"context,omitempty"`
	Datasets      []DatasetDef `json:"datasets"`
}

// DatasetIDs returns every dataset identifier in declaration order.
func (b *BatchDefinition) DatasetIDs() []string {
	ids := make([]string, 0, len(b.Datasets))
	for _, d := range b.Datasets {
		ids = append(ids, d.DatasetID)
	}
	return ids
}

// SequenceGroup is the set of datasets sharing one sequence order. Datasets
// in the same group are parallel-eligible; a higher order is blocked until
// every lower order is terminal.
type SequenceGroup struct {
	Order    int
	Datasets []DatasetDef
}

// DatasetsBySequence groups datasets by sequence order, ascending.
func (b *BatchDefinition) DatasetsBySequence() []SequenceGroup {
	byOrder := map[int][]DatasetDef{}
	for _, d := range b.Datasets {
		byOrder[d.SequenceOrder] = append(byOrder[d.SequenceOrder], d)
	}
	orders := make([]int, 0, len(byOrder))
	for o := range byOrder {
		orders = append(orders, o)
	}
	sort.Ints(orders)
	groups := make([]SequenceGroup, 0, len(orders))
	for _, o := range orders {
		groups = append(groups, SequenceGroup{Order: o, Datasets: byOrder[o]})
	}
	return groups
}

// Dataset returns the dataset with the given identifier, or nil.
func (b *BatchDefinition) Dataset(datasetID string) *DatasetDef {
	for i := range b.Datasets {
		if b.Datasets[i].DatasetID == datasetID {
			return &b.Datasets[i]
		}
	}
	return nil
}
