package inventory

import (
	"slices"
)

type FilterKindString = string
type FilterKeyString = string
type FilterValString = string

/***** Filter *****/

type Filter struct {
	items []FilterItem
}

func (f Filter) Items() []FilterItem {
	return f.items
}

/***** FilterItem *****/

type FilterItem struct {
	kinds                  []FilterKindString
	predicates             []FilterPredicate
	allPredicatesMustMatch bool
}

func (fi FilterItem) Kinds() []FilterKindString {
	return fi.kinds
}

func (fi FilterItem) Predicates() []FilterPredicate {
	return fi.predicates
}

func (fi FilterItem) AllPredicatesMustMatch() bool {
	return fi.allPredicatesMustMatch
}

/***** FilterPredicate *****/

// FilterPredicate matches a top-level payload field against a string value.
type FilterPredicate struct {
	key FilterKeyString
	val FilterValString
}

func P(key FilterKeyString, val FilterValString) FilterPredicate {
	return FilterPredicate{key: key, val: val}
}

func (fp FilterPredicate) Key() FilterKeyString {
	return fp.key
}

func (fp FilterPredicate) Val() FilterValString {
	return fp.val
}

/***** FilterBuilder *****/

// FilterBuilder builds a generic record filter to be used by engine-specific
// store implementations to build queries for their query language (Postgres
// JSONB containment, in-memory payload matching, ...).
// It is designed to only allow "useful" filter combinations for keyed
// inventory scans:
//
//   - (kind)
//   - (kind OR kind...)
//   - (predicate)
//   - (predicate OR predicate...)
//   - (predicate AND predicate...)
//   - (kind AND predicate)
//   - (kind AND (predicate OR predicate...))
//   - (kind AND (predicate AND predicate...))
//   - ((kind OR kind...) AND (predicate OR predicate...))
//   - ((kind AND predicate) OR (kind AND predicate)...) -> multiple FilterItem(s)
type FilterBuilder interface {
	// Matching starts a new FilterItem.
	Matching() EmptyFilterItemBuilder
}

type EmptyFilterItemBuilder interface {
	// AnyKindOf adds one or multiple record kinds to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty kinds ("")
	//	- sorting the kinds
	//	- removing duplicate kinds
	AnyKindOf(kind FilterKindString, kinds ...FilterKindString) FilterItemBuilderLackingPredicates

	// AnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem.
	//
	// It sanitizes the input:
	//	- removing empty/partial FilterPredicate(s) (key or val is "")
	//	- sorting the FilterPredicate(s)
	//	- removing duplicate FilterPredicate(s)
	AnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingKinds

	AllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) FilterItemBuilderLackingKinds
}

type FilterItemBuilderLackingPredicates interface {
	AndAnyPredicateOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder

	AndAllPredicatesOf(predicate FilterPredicate, predicates ...FilterPredicate) CompletedFilterItemBuilder

	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// Finalize returns the Filter once it has at least one FilterItem with at least one kind OR one predicate.
	Finalize() Filter
}

type FilterItemBuilderLackingKinds interface {
	AndAnyKindOf(kind FilterKindString, kinds ...FilterKindString) CompletedFilterItemBuilder

	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// Finalize returns the Filter once it has at least one FilterItem with at least one kind OR one predicate.
	Finalize() Filter
}

type CompletedFilterItemBuilder interface {
	// OrMatching finalizes the current FilterItem and starts a new one.
	OrMatching() EmptyFilterItemBuilder

	// Finalize returns the Filter once it has at least one FilterItem with at least one kind OR one predicate.
	Finalize() Filter
}

// filterBuilder implements all the interfaces of FilterBuilder.
type filterBuilder struct {
	filter            Filter
	currentFilterItem FilterItem
}

// BuildRecordFilter creates a FilterBuilder which must eventually be finalized with Finalize().
func BuildRecordFilter() FilterBuilder {
	return filterBuilder{}
}

// Matching starts a new FilterItem.
func (fb filterBuilder) Matching() EmptyFilterItemBuilder {
	fb.currentFilterItem = FilterItem{}

	return fb
}

// AnyKindOf adds one or multiple record kinds to the current FilterItem expecting ANY kind to match.
func (fb filterBuilder) AnyKindOf(
	kind FilterKindString,
	kinds ...FilterKindString,
) FilterItemBuilderLackingPredicates {

	fb.currentFilterItem.kinds = append(
		fb.currentFilterItem.kinds,
		fb.sanitizeKinds(kind, kinds...)...,
	)

	return fb
}

// AndAnyKindOf adds one or multiple record kinds to the current FilterItem expecting ANY kind to match.
func (fb filterBuilder) AndAnyKindOf(
	kind FilterKindString,
	kinds ...FilterKindString,
) CompletedFilterItemBuilder {

	return fb.AnyKindOf(kind, kinds...)
}

func (fb filterBuilder) sanitizeKinds(
	kind FilterKindString,
	kinds ...FilterKindString,
) []FilterKindString {

	allKinds := append([]FilterKindString{kind}, kinds...)
	allKinds = slices.DeleteFunc(
		allKinds,
		func(k FilterKindString) bool {
			return k == ""
		})
	slices.Sort(allKinds)
	allKinds = slices.Compact(allKinds)
	allKinds = slices.Clip(allKinds)

	return allKinds
}

// AnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ANY predicate to match.
func (fb filterBuilder) AnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingKinds {

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAnyPredicateOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ANY predicate to match.
func (fb filterBuilder) AndAnyPredicateOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	return fb.AnyPredicateOf(predicate, predicates...)
}

// AllPredicatesOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ALL predicates to match.
func (fb filterBuilder) AllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) FilterItemBuilderLackingKinds {

	fb.currentFilterItem.allPredicatesMustMatch = true

	fb.currentFilterItem.predicates = append(
		fb.currentFilterItem.predicates,
		fb.sanitizePredicates(predicate, predicates...)...,
	)

	return fb
}

// AndAllPredicatesOf adds one or multiple FilterPredicate(s) to the current FilterItem expecting ALL predicates to match.
func (fb filterBuilder) AndAllPredicatesOf(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) CompletedFilterItemBuilder {

	return fb.AllPredicatesOf(predicate, predicates...)
}

func (fb filterBuilder) sanitizePredicates(
	predicate FilterPredicate,
	predicates ...FilterPredicate,
) []FilterPredicate {

	allPredicates := append([]FilterPredicate{predicate}, predicates...)
	allPredicates = slices.DeleteFunc(allPredicates, func(p FilterPredicate) bool { return len(p.key) == 0 || len(p.val) == 0 })
	slices.SortFunc(
		allPredicates,
		func(a, b FilterPredicate) int {
			if a.key > b.key {
				return 1
			}

			if a.key < b.key {
				return -1
			}

			return 0
		})

	allPredicates = slices.Compact(allPredicates)
	allPredicates = slices.Clip(allPredicates)

	return allPredicates
}

// OrMatching finalizes the current FilterItem and starts a new one.
func (fb filterBuilder) OrMatching() EmptyFilterItemBuilder {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)
	fb.currentFilterItem = FilterItem{}

	return fb
}

// Finalize returns the Filter once it has at least one FilterItem with at least one kind OR one predicate.
func (fb filterBuilder) Finalize() Filter {
	fb.filter.items = append(fb.filter.items, fb.currentFilterItem)

	return fb.filter
}
