package sqlc

import (
	"time"

	"github.com/google/uuid"
)

type AbilityProjection struct {
	ID           int64
	Name         string
	GenerationID *int64
	IsMainSeries bool
	UpdatedAt    time.Time
}

type CatalogAsset struct {
	ID           int64
	AssetKind    string
	ResourceKind string
	ResourceKey  string
	SourceURL    string
	Bucket       string
	Path         string
	ContentType  *string
	Bytes        int64
	SHA256       string
	CreatedAt    time.Time
}

type CatalogResource struct {
	Kind        string
	NaturalKey  string
	NumericKey  *int64
	DisplayName *string
	SourceURL   string
	Payload     []byte
	FetchedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   *time.Time
}

type KindEstimate struct {
	Kind       string
	Total      int64
	ObservedAt time.Time
}

type MoveProjection struct {
	ID            int64
	Name          string
	TypeID        *int64
	DamageClassID *int64
	TargetID      *int64
	GenerationID  *int64
	Power         *int32
	Accuracy      *int32
	Pp            *int32
	Priority      int32
	EffectChance  *int32
	UpdatedAt     time.Time
}

type PokemonProjection struct {
	ID             int64
	Name           string
	Height         *int32
	Weight         *int32
	BaseExperience *int32
	IsDefault      bool
	UpdatedAt      time.Time
}

type SyncJob struct {
	ID             uuid.UUID
	Mode           string
	Status         string
	Scope          []string
	SucceededCount int64
	FailedCount    int64
	RemainingCount int64
	ErrorLog       []byte
	Message        *string
	StartedAt      time.Time
	HeartbeatAt    time.Time
	CompletedAt    *time.Time
}

type TypeProjection struct {
	ID            int64
	Name          string
	GenerationID  *int64
	DamageClassID *int64
	UpdatedAt     time.Time
}

type WorkQueue struct {
	ID             int64
	QueueName      string
	Kind           string
	SourceURL      string
	Metadata       []byte
	LeaseID        *uuid.UUID
	Attempts       int32
	EnqueuedAt     time.Time
	VisibleAt      time.Time
	LeasedAt       *time.Time
	DeadLetteredAt *time.Time
	LastError      *string
}
