// Package sources enumerates the upstream list indexes.
//
// Every resource kind exposes a paginated index at {base}/{kind}?limit=&offset= that
// answers with {count, next, previous, results:[{name, url}]}. Walk pages through an
// index by following the absolute next link until the index is exhausted, a page cap is
// reached, or enough URLs have been collected.
package sources
