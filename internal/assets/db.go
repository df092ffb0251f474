package assets

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/db/sqlc"
	"github.com/pokemnky/catalog-sync/internal/otel"
)

type dbCatalog struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewDBCatalog returns a Catalog backed by the catalog_asset table
func NewDBCatalog(pool *pgxpool.Pool, tracer trace.Tracer) (Catalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	return &dbCatalog{pool: pool, tracer: tracer}, nil
}

func (c *dbCatalog) Exists(ctx context.Context, sourceURL string) (bool, error) {
	ctx, span := otel.StartDBSpan(ctx, c.tracer, "assets.Exists",
		trace.WithAttributes(otel.AttrSourceURL.String(sourceURL)))
	defer span.End()

	exists, err := sqlc.New(c.pool).AssetExists(ctx, sourceURL)
	if err != nil {
		otel.RecordError(span, err)
		return false, fmt.Errorf("failed to check asset: %w", err)
	}
	return exists, nil
}

func (c *dbCatalog) Record(ctx context.Context, asset Asset) error {
	ctx, span := otel.StartDBSpan(ctx, c.tracer, "assets.Record",
		trace.WithAttributes(otel.AttrSourceURL.String(asset.SourceURL)))
	defer span.End()

	var contentType *string
	if asset.ContentType != "" {
		contentType = &asset.ContentType
	}
	err := sqlc.New(c.pool).UpsertAsset(ctx, sqlc.UpsertAssetParams{
		AssetKind:    asset.AssetKind,
		ResourceKind: string(asset.ResourceKind),
		ResourceKey:  asset.ResourceKey,
		SourceURL:    asset.SourceURL,
		Bucket:       asset.Bucket,
		Path:         asset.Path,
		ContentType:  contentType,
		Bytes:        asset.Bytes,
		SHA256:       asset.SHA256,
	})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to record asset: %w", err)
	}
	return nil
}

func (c *dbCatalog) ListForResource(ctx context.Context, kind catalog.Kind, key string) ([]Asset, error) {
	ctx, span := otel.StartDBSpan(ctx, c.tracer, "assets.ListForResource",
		trace.WithAttributes(otel.AttrKind.String(string(kind)), otel.AttrResourceKey.String(key)))
	defer span.End()

	rows, err := sqlc.New(c.pool).ListAssetsForResource(ctx, sqlc.ListAssetsForResourceParams{
		ResourceKind: string(kind),
		ResourceKey:  key,
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	out := make([]Asset, 0, len(rows))
	for _, row := range rows {
		a := Asset{
			ID:           row.ID,
			AssetKind:    row.AssetKind,
			ResourceKind: catalog.Kind(row.ResourceKind),
			ResourceKey:  row.ResourceKey,
			SourceURL:    row.SourceURL,
			Bucket:       row.Bucket,
			Path:         row.Path,
			Bytes:        row.Bytes,
			SHA256:       row.SHA256,
			CreatedAt:    row.CreatedAt,
		}
		if row.ContentType != nil {
			a.ContentType = *row.ContentType
		}
		out = append(out, a)
	}
	return out, nil
}
