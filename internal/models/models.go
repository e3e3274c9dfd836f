// Package models holds the gorm row structs for every persistent entity in
// spec §3, generalized from the teacher's single AssetSnapshotRecord
// pattern (internal/db/transaction_recorder.go) — a gorm model with an
// explicit TableName, monetary quantities stored as text, and
// autoCreateTime/autoUpdateTime bookkeeping columns — into one struct per
// aggregate, mirroring original_source's crates/chaindata/models/src/models/*.rs
// one-struct-per-aggregate layout.
package models

import (
	"time"

	"github.com/ponziland/chainindexer/internal/chain"
	"gorm.io/datatypes"
)

// EventKind enumerates the closed set of on-chain event variants (spec §3).
type EventKind string

const (
	EventKindAddStake           EventKind = "AddStake"
	EventKindAuctionFinished    EventKind = "AuctionFinished"
	EventKindLandBought         EventKind = "LandBought"
	EventKindLandNuked          EventKind = "LandNuked"
	EventKindNewAuction         EventKind = "NewAuction"
	EventKindLandTransfer       EventKind = "LandTransfer"
	EventKindAddressAuthorized  EventKind = "AddressAuthorized"
	EventKindAddressRemoved     EventKind = "AddressRemoved"
	EventKindVerifierUpdated    EventKind = "VerifierUpdated"
)

// Event is the canonical, immutable-once-written event envelope row.
// Block/TxIndex/EventIndex duplicate what ID already encodes, as plain
// numeric columns: Postgres row comparison (block, tx_index, event_index) >
// (?, ?, ?) gives correct total-order cursor pagination, which a text
// comparison on ID cannot (upstream doesn't zero-pad the component widths).
type Event struct {
	ID         chain.EventId `gorm:"column:id;primaryKey;type:text"`
	At         time.Time     `gorm:"column:at;not null;index"`
	Kind       EventKind     `gorm:"column:event_type;not null;index"`
	Block      uint64        `gorm:"column:block;not null"`
	TxIndex    uint64        `gorm:"column:tx_index;not null"`
	EventIndex uint64        `gorm:"column:event_index;not null"`
}

func (Event) TableName() string { return "event" }

// NewEvent builds an Event row, deriving the numeric ordering columns from id.
func NewEvent(id chain.EventId, at time.Time, kind EventKind) Event {
	return Event{ID: id, At: at, Kind: kind, Block: id.Block, TxIndex: id.TxIndex, EventIndex: id.EventIndex}
}

// EventAddStake is the per-kind payload table for AddStake events.
type EventAddStake struct {
	EventID       chain.EventId `gorm:"column:event_id;primaryKey;type:text"`
	Owner         string        `gorm:"column:owner;not null;index"`
	Location      chain.Location `gorm:"column:location;not null;index"`
	NewStakeAmount string       `gorm:"column:new_stake_amount;type:varchar(80);not null"`
}

func (EventAddStake) TableName() string { return "event_add_stake" }

// EventAuctionFinished is the per-kind payload table for AuctionFinished events.
type EventAuctionFinished struct {
	EventID  chain.EventId  `gorm:"column:event_id;primaryKey;type:text"`
	Location chain.Location `gorm:"column:location;not null;index"`
	Buyer    string         `gorm:"column:buyer;not null;index"`
	Price    string         `gorm:"column:price;type:varchar(80);not null"`
}

func (EventAuctionFinished) TableName() string { return "event_auction_finished" }

// EventLandBought is the per-kind payload table for LandBought events.
type EventLandBought struct {
	EventID    chain.EventId  `gorm:"column:event_id;primaryKey;type:text"`
	Buyer      string         `gorm:"column:buyer;not null;index"`
	Seller     string         `gorm:"column:seller;not null;index"`
	Location   chain.Location `gorm:"column:location;not null;index"`
	SoldPrice  string         `gorm:"column:sold_price;type:varchar(80);not null"`
	TokenUsed  string         `gorm:"column:token_used;not null"`
}

func (EventLandBought) TableName() string { return "event_land_bought" }

// EventLandNuked is the per-kind payload table for LandNuked events.
type EventLandNuked struct {
	EventID  chain.EventId  `gorm:"column:event_id;primaryKey;type:text"`
	Owner    string         `gorm:"column:owner;not null;index"`
	Location chain.Location `gorm:"column:location;not null;index"`
}

func (EventLandNuked) TableName() string { return "event_land_nuked" }

// EventNewAuction is the per-kind payload table for NewAuction events.
type EventNewAuction struct {
	EventID    chain.EventId  `gorm:"column:event_id;primaryKey;type:text"`
	Location   chain.Location `gorm:"column:location;not null;index"`
	StartTime  time.Time      `gorm:"column:start_time;not null"`
	StartPrice string         `gorm:"column:start_price;type:varchar(80);not null"`
	FloorPrice string         `gorm:"column:floor_price;type:varchar(80);not null"`
	DecayRate  int64          `gorm:"column:decay_rate;not null"`
}

func (EventNewAuction) TableName() string { return "event_new_auction" }

// EventLandTransfer is the per-kind payload table for LandTransfer events —
// the tax-payment event consumed by C5 (TAX_OUT) and C6 (token flows).
type EventLandTransfer struct {
	EventID      chain.EventId  `gorm:"column:event_id;primaryKey;type:text"`
	FromLocation chain.Location `gorm:"column:from_location;not null;index"`
	ToLocation   chain.Location `gorm:"column:to_location;not null;index"`
	TokenAddress string         `gorm:"column:token_address;not null;index"`
	Amount       string         `gorm:"column:amount;type:varchar(80);not null"`
}

func (EventLandTransfer) TableName() string { return "event_land_transfer" }

// EventAddressAuthorized is the per-kind payload table for AddressAuthorized events.
type EventAddressAuthorized struct {
	EventID chain.EventId `gorm:"column:event_id;primaryKey;type:text"`
	Address string        `gorm:"column:address;not null;index"`
}

func (EventAddressAuthorized) TableName() string { return "event_address_authorized" }

// EventAddressRemoved is the per-kind payload table for AddressRemoved events.
type EventAddressRemoved struct {
	EventID chain.EventId `gorm:"column:event_id;primaryKey;type:text"`
	Address string        `gorm:"column:address;not null;index"`
}

func (EventAddressRemoved) TableName() string { return "event_address_removed" }

// EventVerifierUpdated is the per-kind payload table for VerifierUpdated events.
type EventVerifierUpdated struct {
	EventID     chain.EventId `gorm:"column:event_id;primaryKey;type:text"`
	NewVerifier string        `gorm:"column:new_verifier;not null"`
}

func (EventVerifierUpdated) TableName() string { return "event_verifier_updated" }

// Land is the latest Land snapshot for a location (spec §3: at most one row
// per location at the latest `at`).
type Land struct {
	ID               chain.EventId  `gorm:"column:id;type:text"`
	At               time.Time      `gorm:"column:at;not null"`
	Location         chain.Location `gorm:"column:location;primaryKey"`
	Owner            string         `gorm:"column:owner;not null;index"`
	TokenUsed        string         `gorm:"column:token_used;not null"`
	SellPrice        string         `gorm:"column:sell_price;type:varchar(80);not null"`
	Level            int32          `gorm:"column:level;not null"`
	BlockDateBought  int64          `gorm:"column:block_date_bought;not null"`
}

func (Land) TableName() string { return "land" }

// LandStake is the latest LandStake snapshot for a location, derived from
// the packed neighbors_info_packed field (spec §3, §4.3, §9).
type LandStake struct {
	ID                            chain.EventId  `gorm:"column:id;type:text"`
	At                            time.Time      `gorm:"column:at;not null"`
	Location                      chain.Location `gorm:"column:location;primaryKey"`
	Amount                        string         `gorm:"column:amount;type:varchar(80);not null"`
	EarliestClaimNeighborTime     time.Time      `gorm:"column:earliest_claim_neighbor_time"`
	EarliestClaimNeighborLocation chain.Location `gorm:"column:earliest_claim_neighbor_location"`
	NumActiveNeighbors            int32          `gorm:"column:num_active_neighbors;not null"`
}

func (LandStake) TableName() string { return "land_stake" }

// Auction is upserted on (location): at most one auction row per location.
type Auction struct {
	ID            chain.EventId  `gorm:"column:id;type:text"`
	At            time.Time      `gorm:"column:at;not null"`
	Location      chain.Location `gorm:"column:location;primaryKey"`
	StartTime     time.Time      `gorm:"column:start_time;not null"`
	StartPrice    string         `gorm:"column:start_price;type:varchar(80);not null"`
	FloorPrice    string         `gorm:"column:floor_price;type:varchar(80);not null"`
	DecayRate     int64          `gorm:"column:decay_rate;not null"`
	IsFinished    bool           `gorm:"column:is_finished;not null"`
	SoldAtPrice   *string        `gorm:"column:sold_at_price;type:varchar(80)"`
}

func (Auction) TableName() string { return "auction" }

// EntryType is how a position was opened.
type EntryType string

const (
	EntryTypeAuction EntryType = "AUCTION"
	EntryTypeBuy     EntryType = "BUY"
)

// ExitType is how a position was closed.
type ExitType string

const (
	ExitTypeSold  ExitType = "SOLD"
	ExitTypeNuked ExitType = "NUKED"
)

// PositionStatus is the position's lifecycle state (spec §4.4 state machine).
type PositionStatus string

const (
	PositionStatusActive PositionStatus = "ACTIVE"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// LandPosition is the first-class accounting entity C5 derives (spec §3).
// Invariant: at most one ACTIVE row per (owner, location). No database
// constraint enforces it: migrations/0001_init.sql creates only non-unique
// indexes on location, owner and status.
type LandPosition struct {
	PositionID        int64          `gorm:"column:position_id;primaryKey;autoIncrement"`
	Location          chain.Location `gorm:"column:location;not null;index"`
	Owner             string         `gorm:"column:owner;not null;index"`
	TokenUsed         string         `gorm:"column:token_used;not null"`
	EntryPrice        string         `gorm:"column:entry_price;type:varchar(80);not null"`
	EntryToken        string         `gorm:"column:entry_token;not null"`
	EntryType         EntryType      `gorm:"column:entry_type;not null"`
	EntryTimestamp    time.Time      `gorm:"column:entry_timestamp;not null"`
	EntryEventID      chain.EventId  `gorm:"column:entry_event_id;type:text;not null"`
	InitialStake      string         `gorm:"column:initial_stake;type:varchar(80);not null"`
	TotalStakeAdded   string         `gorm:"column:total_stake_added;type:varchar(80);not null"`
	TaxesEarnedByToken datatypes.JSON `gorm:"column:taxes_earned_by_token"`
	TaxesPaidAmount   string         `gorm:"column:taxes_paid_amount;type:varchar(80);not null"`
	TotalBuyFee       string         `gorm:"column:total_buy_fee;type:varchar(80);not null"`
	TotalClaimFees    string         `gorm:"column:total_claim_fees;type:varchar(80);not null"`
	ExitPrice         *string        `gorm:"column:exit_price;type:varchar(80)"`
	StakeRefunded     *string        `gorm:"column:stake_refunded;type:varchar(80)"`
	ExitTimestamp     *time.Time     `gorm:"column:exit_timestamp"`
	ExitType          *ExitType      `gorm:"column:exit_type"`
	ExitEventID       *chain.EventId `gorm:"column:exit_event_id;type:text"`
	Status            PositionStatus `gorm:"column:status;not null;index"`
	ValueInUsdc       *string        `gorm:"column:value_in_usdc;type:varchar(80)"`
}

func (LandPosition) TableName() string { return "land_position" }

// CloseReason is why a LandHistorical row was closed.
type CloseReason string

const (
	CloseReasonBought CloseReason = "bought"
	CloseReasonNuked  CloseReason = "nuked"
)

// LandHistorical is the flat, duplicate-of-position schema C6 maintains for
// leaderboards and drop analytics (spec §3). id recipe:
// "{owner_hex}_{location_display}_{unix_timestamp}".
type LandHistorical struct {
	ID              string         `gorm:"column:id;primaryKey"`
	At              time.Time      `gorm:"column:at;not null"`
	Owner           string         `gorm:"column:owner;not null;index"`
	LandLocation    chain.Location `gorm:"column:land_location;not null;index"`
	TimeBought      time.Time      `gorm:"column:time_bought;not null;index"`
	CloseDate       *time.Time     `gorm:"column:close_date"`
	CloseReason     *CloseReason   `gorm:"column:close_reason"`
	BuyCostToken    *string        `gorm:"column:buy_cost_token;type:varchar(80)"`
	BuyCostUsd      *string        `gorm:"column:buy_cost_usd;type:varchar(80)"`
	BuyTokenUsed    *string        `gorm:"column:buy_token_used"`
	SaleRevenueToken *string       `gorm:"column:sale_revenue_token;type:varchar(80)"`
	SaleRevenueUsd  *string        `gorm:"column:sale_revenue_usd;type:varchar(80)"`
	SaleTokenUsed   *string        `gorm:"column:sale_token_used"`
	TokenInflows    datatypes.JSONMap `gorm:"column:token_inflows"`
	TokenOutflows   datatypes.JSONMap `gorm:"column:token_outflows"`
}

func (LandHistorical) TableName() string { return "land_historical" }

// PositionEventType enumerates the append-only event_type values on
// PositionEventLog (spec §3: "CREATED, CLOSED, TAX_OUT, STAKE_ADDED, …").
type PositionEventType string

const (
	PositionEventCreated    PositionEventType = "CREATED"
	PositionEventClosed     PositionEventType = "CLOSED"
	PositionEventTaxOut     PositionEventType = "TAX_OUT"
	PositionEventStakeAdded PositionEventType = "STAKE_ADDED"
)

// PositionEventLog is C5's idempotency + audit log. Invariant:
// blockchain_event_id uniquely identifies a derivation act.
type PositionEventLog struct {
	LogID             int64             `gorm:"column:log_id;primaryKey;autoIncrement"`
	PositionID        int64             `gorm:"column:position_id;not null;index"`
	EventType         PositionEventType `gorm:"column:event_type;not null"`
	EventData         datatypes.JSON    `gorm:"column:event_data"`
	Timestamp         time.Time         `gorm:"column:timestamp;not null"`
	BlockchainEventID chain.EventId     `gorm:"column:blockchain_event_id;type:text;not null;uniqueIndex"`
}

func (PositionEventLog) TableName() string { return "position_event_log" }

// PnlProcessingError records a poison event C5 could not process after
// pnl.maxAttempts consecutive attempts, so the cursor can advance past
// it without losing the failure (spec §4.4, §7 InvariantViolation policy).
type PnlProcessingError struct {
	ID           int64         `gorm:"column:id;primaryKey;autoIncrement"`
	EventID      chain.EventId `gorm:"column:event_id;type:text;not null;index"`
	EventKind    EventKind     `gorm:"column:event_kind;not null"`
	Error        string        `gorm:"column:error;not null"`
	Attempts     int           `gorm:"column:attempts;not null"`
	FirstSeenAt  time.Time     `gorm:"column:first_seen_at;not null"`
	LastSeenAt   time.Time     `gorm:"column:last_seen_at;not null"`
}

func (PnlProcessingError) TableName() string { return "pnl_processing_error" }

// PnlCursor is the singleton (id=1) cursor C5 advances (spec §3).
type PnlCursor struct {
	ID                      int            `gorm:"column:id;primaryKey"`
	LastProcessedTimestamp  time.Time      `gorm:"column:last_processed_timestamp;not null"`
	LastProcessedEventID    *chain.EventId `gorm:"column:last_processed_event_id;type:text"`
}

func (PnlCursor) TableName() string { return "pnl_processor_state" }

// IngestCursor is the generic "max(at) across one or more source tables"
// cursor shared by C3 (event table) and C4 (land + land_stake tables),
// keyed by a small string id so both can reuse one table.
type IngestCursor struct {
	ID                     string         `gorm:"column:id;primaryKey"`
	LastProcessedTimestamp time.Time      `gorm:"column:last_processed_timestamp;not null"`
	LastProcessedEventID   *chain.EventId `gorm:"column:last_processed_event_id;type:text"`
}

func (IngestCursor) TableName() string { return "ingest_cursor" }

const (
	IngestCursorEvent = "event_ingester"
	IngestCursorModel = "model_ingester"
	IngestCursorHistory = "history_deriver"
	IngestCursorWallet  = "wallet_activity_deriver"
)

// WalletActivity is the per-address activity rollup C7 maintains.
type WalletActivity struct {
	Address        string    `gorm:"column:address;primaryKey"`
	FirstActivityAt time.Time `gorm:"column:first_activity_at;not null"`
	LastActivityAt  time.Time `gorm:"column:last_activity_at;not null"`
	ActivityCount   int64     `gorm:"column:activity_count;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (WalletActivity) TableName() string { return "wallet_activity" }

// HistoricalPriceFeed is the append-only price history table (spec §3).
type HistoricalPriceFeed struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Symbol    string    `gorm:"column:symbol;not null;index"`
	Price     string    `gorm:"column:price;type:varchar(80);not null"`
	UsdRatio  *string   `gorm:"column:usd_ratio;type:varchar(80)"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index"`
}

func (HistoricalPriceFeed) TableName() string { return "historical_price_feed" }

// TokenRegistry backs GET /tokens and the decimals lookups C6/C8 need for
// USD conversion (SPEC_FULL §3 [ADD]).
type TokenRegistry struct {
	Address   string    `gorm:"column:address;primaryKey"`
	Symbol    string    `gorm:"column:symbol;not null"`
	Decimals  int32     `gorm:"column:decimals;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (TokenRegistry) TableName() string { return "token_registry" }

// Message is the out-of-scope-in-depth chat row (SPEC_FULL §3 [ADD]).
type Message struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	AuthorAddress string     `gorm:"column:author_address;not null;index"`
	Body          string     `gorm:"column:body;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	DeletedAt     *time.Time `gorm:"column:deleted_at"`
}

func (Message) TableName() string { return "message" }
