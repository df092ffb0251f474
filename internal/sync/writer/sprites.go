package writer

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/queue"
)

// Sprite queue item metadata keys
const (
	MetaResourceKind = "resource_kind"
	MetaResourceKey  = "resource_key"
	MetaTargetPath   = "target_path"
)

// SpriteHook returns a hook that enqueues every sprite URL of a stored pokemon onto q
func SpriteHook(q queue.Queue) Hook {
	return func(ctx context.Context, res cache.Resource, doc gjson.Result) error {
		if res.Kind != catalog.KindPokemon {
			return nil
		}

		urls := SpriteURLs(doc.Get("sprites"))
		if len(urls) == 0 {
			return nil
		}

		items := make([]queue.Item, 0, len(urls))
		for _, u := range urls {
			items = append(items, queue.Item{
				Kind:      catalog.KindPokemon,
				SourceURL: u,
				Metadata: map[string]string{
					MetaResourceKind: string(res.Kind),
					MetaResourceKey:  res.NaturalKey,
					MetaTargetPath:   SpritePath(res.NaturalKey, u),
				},
			})
		}

		if _, err := q.Enqueue(ctx, items); err != nil {
			return fmt.Errorf("failed to enqueue %d sprites for pokemon %s: %w", len(items), res.NaturalKey, err)
		}
		return nil
	}
}

// SpriteURLs walks a nested sprites value and returns every distinct http(s) URL in document order
func SpriteURLs(sprites gjson.Result) []string {
	var out []string
	seen := make(map[string]struct{})

	var walk func(v gjson.Result)
	walk = func(v gjson.Result) {
		switch {
		case v.Type == gjson.String:
			s := v.String()
			lower := strings.ToLower(s)
			if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
				return
			}
			if _, dup := seen[s]; dup {
				return
			}
			seen[s] = struct{}{}
			out = append(out, s)
		case v.IsArray() || v.IsObject():
			v.ForEach(func(_, child gjson.Result) bool {
				walk(child)
				return true
			})
		}
	}
	walk(sprites)
	return out
}

// SpritePath returns the object path of a sprite: pokemon/{id}/ followed by the URL path
// after its last "sprites" segment, or its last three segments when there is none
func SpritePath(id, spriteURL string) string {
	u, err := url.Parse(spriteURL)
	if err != nil {
		return "pokemon/" + id + "/sprites/unknown.png"
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	tail := segments[max(len(segments)-3, 0):]
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "sprites" {
			tail = segments[i+1:]
			break
		}
	}
	if len(tail) == 0 {
		return "pokemon/" + id + "/sprites/unknown.png"
	}

	joined := strings.Join(tail, "/")
	for strings.Contains(joined, "..") {
		joined = strings.ReplaceAll(joined, "..", ".")
	}
	joined = strings.Join(strings.Fields(joined), "-")
	if path.Ext(joined) == "" {
		joined += ".png"
	}
	return "pokemon/" + id + "/" + joined
}
