package sqlc

import (
	"context"
)

const assetExists = `-- name: AssetExists :one
SELECT EXISTS (SELECT 1 FROM catalog_asset WHERE source_url = $1)
`

func (q *Queries) AssetExists(ctx context.Context, sourceURL string) (bool, error) {
	row := q.db.QueryRow(ctx, assetExists, sourceURL)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listAssetsForResource = `-- name: ListAssetsForResource :many
SELECT id, asset_kind, resource_kind, resource_key, source_url, bucket, path, content_type, bytes, sha256, created_at
FROM catalog_asset
WHERE resource_kind = $1 AND resource_key = $2
ORDER BY path
`

type ListAssetsForResourceParams struct {
	ResourceKind string
	ResourceKey  string
}

func (q *Queries) ListAssetsForResource(ctx context.Context, arg ListAssetsForResourceParams) ([]CatalogAsset, error) {
	rows, err := q.db.Query(ctx, listAssetsForResource, arg.ResourceKind, arg.ResourceKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogAsset
	for rows.Next() {
		var i CatalogAsset
		if err := rows.Scan(
			&i.ID,
			&i.AssetKind,
			&i.ResourceKind,
			&i.ResourceKey,
			&i.SourceURL,
			&i.Bucket,
			&i.Path,
			&i.ContentType,
			&i.Bytes,
			&i.SHA256,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertAsset = `-- name: UpsertAsset :exec
INSERT INTO catalog_asset (
    asset_kind, resource_kind, resource_key, source_url, bucket, path, content_type, bytes, sha256
) VALUES (
    $1, $2, $3, $4,
    $5, $6, $7, $8, $9
)
ON CONFLICT (source_url) DO UPDATE SET
    bucket       = EXCLUDED.bucket,
    path         = EXCLUDED.path,
    content_type = EXCLUDED.content_type,
    bytes        = EXCLUDED.bytes,
    sha256       = EXCLUDED.sha256
`

type UpsertAssetParams struct {
	AssetKind    string
	ResourceKind string
	ResourceKey  string
	SourceURL    string
	Bucket       string
	Path         string
	ContentType  *string
	Bytes        int64
	SHA256       string
}

func (q *Queries) UpsertAsset(ctx context.Context, arg UpsertAssetParams) error {
	_, err := q.db.Exec(ctx, upsertAsset,
		arg.AssetKind,
		arg.ResourceKind,
		arg.ResourceKey,
		arg.SourceURL,
		arg.Bucket,
		arg.Path,
		arg.ContentType,
		arg.Bytes,
		arg.SHA256,
	)
	return err
}
