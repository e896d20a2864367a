package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	UnknownWarehouse = "Unknown Warehouse"
	NoLocationFound  = "No Location Found"
)

// Origen de un LocationLookup
const (
	LookupSourceInventory = "inventory"
	LookupSourceView      = "view"
	LookupSourceNone      = "none"
)

type Warehouse struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type WarehouseLocation struct {
	ID          string  `json:"id" db:"id"`
	WarehouseID string  `json:"warehouse_id" db:"warehouse_id"`
	Name        string  `json:"name" db:"name"`
	Floor       *string `json:"floor" db:"floor"`
	Zone        *string `json:"zone" db:"zone"`
}

// LocationInfo es el formato persistido en stock_out_processed_items.notes.
// Siempre se serializa con las seis claves, null cuando no se conoce el valor.
type LocationInfo struct {
	WarehouseID   *string `json:"warehouse_id"`
	WarehouseName *string `json:"warehouse_name"`
	LocationID    *string `json:"location_id"`
	LocationName  *string `json:"location_name"`
	Floor         *string `json:"floor"`
	Zone          *string `json:"zone"`
}

// LocationInfoFromBatchItem toma la ubicación desnormalizada del batch item
func LocationInfoFromBatchItem(item *BatchItem) LocationInfo {
	return LocationInfo{
		WarehouseID:   nonEmpty(item.WarehouseID),
		WarehouseName: nonEmpty(item.WarehouseName),
		LocationID:    nonEmpty(item.LocationID),
		LocationName:  nonEmpty(item.LocationName),
		Floor:         nonEmpty(item.Floor),
		Zone:          nonEmpty(item.Zone),
	}
}

func (l LocationInfo) Encode() (string, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("failed to encode location info: %w", err)
	}
	return string(data), nil
}

// DecodeLocationInfo interpreta el JSON de notes. Un texto vacío da un LocationInfo vacío.
func DecodeLocationInfo(raw string) (LocationInfo, error) {
	var info LocationInfo
	if raw == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return LocationInfo{}, fmt.Errorf("failed to decode location info: %w", err)
	}
	return info, nil
}

// HasNames indica si ya trae nombres legibles de bodega y ubicación
func (l LocationInfo) HasNames() bool {
	return l.WarehouseName != nil && *l.WarehouseName != "" && l.LocationName != nil && *l.LocationName != ""
}

// LocationLookup es el resultado de la reconciliación de ubicación de un código de barras
type LocationLookup struct {
	Barcode       string    `json:"barcode"`
	WarehouseID   *string   `json:"warehouse_id"`
	WarehouseName string    `json:"warehouse_name"`
	LocationID    *string   `json:"location_id"`
	LocationName  string    `json:"location_name"`
	Floor         *string   `json:"floor"`
	Zone          *string   `json:"zone"`
	Source        string    `json:"source"`
	Errored       bool      `json:"errored"`
	Error         string    `json:"error,omitempty"`
	ResolvedAt    time.Time `json:"resolved_at"`
}

// ApplyTo completa los nombres que falten en un LocationInfo
func (l LocationLookup) ApplyTo(info *LocationInfo) {
	if info.WarehouseID == nil {
		info.WarehouseID = l.WarehouseID
	}
	if info.WarehouseName == nil || *info.WarehouseName == "" {
		name := l.WarehouseName
		info.WarehouseName = &name
	}
	if info.LocationID == nil {
		info.LocationID = l.LocationID
	}
	if info.LocationName == nil || *info.LocationName == "" {
		name := l.LocationName
		info.LocationName = &name
	}
	if info.Floor == nil {
		info.Floor = l.Floor
	}
	if info.Zone == nil {
		info.Zone = l.Zone
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// InventoryRecord es la ubicación viva de un código de barras en la tabla inventory
type InventoryRecord struct {
	Barcode     string  `db:"barcode"`
	WarehouseID *string `db:"warehouse_id"`
	LocationID  *string `db:"location_id"`
}

// ViewLocation es una fila de batch_item_locations_view
type ViewLocation struct {
	Barcode       string  `db:"barcode"`
	WarehouseID   *string `db:"warehouse_id"`
	WarehouseName *string `db:"warehouse_name"`
	LocationID    *string `db:"location_id"`
	LocationName  *string `db:"location_name"`
	Floor         *string `db:"floor"`
	Zone          *string `db:"zone"`
}
