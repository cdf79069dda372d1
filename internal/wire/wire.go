// Package wire converts snapshots to and from the remote store's
// row-oriented format: a flat map of key to JSON-encoded string. List
// collections are row-split, every element under its own
// "<collection>_item_<id>" key, so the remote two-column table stays
// auditable one record per row. Scalar fields use bare keys.
package wire

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fernhollow/tripsync/internal/model"
)

// Row-split collection names. Everything else is a scalar key.
const (
	colGear        = "gear"
	colIngredients = "ingredients"
	colMealPlans   = "mealPlans"
	colBills       = "bills"
)

const (
	keyTripInfo         = "tripInfo"
	keyMembers          = "members"
	keyCheckedDeparture = "checkedDeparture"
	keyCheckedReturn    = "checkedReturn"
	keyLastUpdated      = "lastUpdated"

	itemInfix = "_item_"
)

// ToWireFormat serializes a snapshot into the flat row map.
func ToWireFormat(snap model.Snapshot) (map[string]string, error) {
	rows := make(map[string]string)

	for _, item := range snap.Gear {
		if err := putItem(rows, colGear, item.ID, item); err != nil {
			return nil, err
		}
	}
	for _, ing := range snap.Ingredients {
		if err := putItem(rows, colIngredients, ing.ID, ing); err != nil {
			return nil, err
		}
	}
	for _, plan := range snap.MealPlans {
		if err := putItem(rows, colMealPlans, plan.ID, plan); err != nil {
			return nil, err
		}
	}
	for _, bill := range snap.Bills {
		if err := putItem(rows, colBills, bill.ID, bill); err != nil {
			return nil, err
		}
	}

	scalars := map[string]any{
		keyTripInfo:         snap.Trip,
		keyMembers:          snap.Members,
		keyCheckedDeparture: snap.CheckedDeparture,
		keyCheckedReturn:    snap.CheckedReturn,
		keyLastUpdated:      snap.LastUpdated,
	}
	for key, v := range scalars {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		rows[key] = string(data)
	}
	return rows, nil
}

func putItem(rows map[string]string, collection, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s item %s: %w", collection, id, err)
	}
	rows[collection+itemInfix+id] = string(data)
	return nil
}

// FromWireFormat reconstructs a snapshot from the row map. Row-split
// collections are gathered by key prefix; element order within a
// collection is not part of the contract. When a collection has no
// prefixed rows the legacy shape (a bare key holding a JSON array) is
// accepted instead, including the historical gear_public/gear_personal
// pair with group values "public" and "personal".
func FromWireFormat(rows map[string]string) (model.Snapshot, error) {
	var snap model.Snapshot

	if err := collectSplit(rows, colIngredients, &snap.Ingredients); err != nil {
		return model.Snapshot{}, err
	}
	if err := collectSplit(rows, colMealPlans, &snap.MealPlans); err != nil {
		return model.Snapshot{}, err
	}
	if err := collectSplit(rows, colBills, &snap.Bills); err != nil {
		return model.Snapshot{}, err
	}
	if err := collectGear(rows, &snap.Gear); err != nil {
		return model.Snapshot{}, err
	}

	if err := scalar(rows, keyTripInfo, &snap.Trip); err != nil {
		return model.Snapshot{}, err
	}
	if err := scalar(rows, keyMembers, &snap.Members); err != nil {
		return model.Snapshot{}, err
	}
	if err := scalar(rows, keyCheckedDeparture, &snap.CheckedDeparture); err != nil {
		return model.Snapshot{}, err
	}
	if err := scalar(rows, keyCheckedReturn, &snap.CheckedReturn); err != nil {
		return model.Snapshot{}, err
	}
	if err := scalar(rows, keyLastUpdated, &snap.LastUpdated); err != nil {
		return model.Snapshot{}, err
	}

	if snap.CheckedDeparture == nil {
		snap.CheckedDeparture = make(map[string]bool)
	}
	if snap.CheckedReturn == nil {
		snap.CheckedReturn = make(map[string]bool)
	}
	return snap, nil
}

// collectSplit gathers "<collection>_item_*" rows into dst, falling back
// to a legacy "<collection>" array row when none exist. Keys are walked
// in sorted order only so reconstruction is deterministic within one map;
// callers must not read meaning into the resulting order.
func collectSplit[T any](rows map[string]string, collection string, dst *[]T) error {
	prefix := collection + itemInfix
	var keys []string
	for key := range rows {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		var item T
		if err := json.Unmarshal([]byte(rows[key]), &item); err != nil {
			return fmt.Errorf("parse row %s: %w", key, err)
		}
		*dst = append(*dst, item)
	}
	if len(keys) > 0 {
		return nil
	}

	raw, ok := rows[collection]
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("parse legacy %s array: %w", collection, err)
	}
	return nil
}

// collectGear handles the gear collection plus its historical split into
// separate public/personal collections.
func collectGear(rows map[string]string, dst *[]model.GearItem) error {
	if err := collectSplit(rows, colGear, dst); err != nil {
		return err
	}
	if len(*dst) == 0 {
		var public, personal []model.GearItem
		if err := collectSplit(rows, "gear_public", &public); err != nil {
			return err
		}
		if err := collectSplit(rows, "gear_personal", &personal); err != nil {
			return err
		}
		for i := range public {
			if public[i].Group == "" {
				public[i].Group = model.GearShared
			}
		}
		for i := range personal {
			if personal[i].Group == "" {
				personal[i].Group = model.GearIndividual
			}
		}
		*dst = append(public, personal...)
	}

	for i := range *dst {
		switch (*dst)[i].Group {
		case "public":
			(*dst)[i].Group = model.GearShared
		case "personal":
			(*dst)[i].Group = model.GearIndividual
		}
	}
	return nil
}

func scalar[T any](rows map[string]string, key string, dst *T) error {
	raw, ok := rows[key]
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	return nil
}
