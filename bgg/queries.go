package bgg

import (
	"net/url"
	"strconv"
	"strings"
)

// ThingBatchSize is the maximum number of thing IDs per request.
// The API rejects multi-game requests above 20 IDs.
const ThingBatchSize = 20

// CollectionSubtypes are the collection subtypes downloaded per user,
// in download order.
var CollectionSubtypes = []string{"boardgame", "boardgameexpansion", "boardgameaccessory"}

// Expected root tags per endpoint.
const (
	RootTagUser  = "user"
	RootTagItems = "items"
	RootTagPlays = "plays"
)

// UserQuery returns the query path for a user profile, including buddies
// and guilds.
func UserQuery(username string) string {
	v := url.Values{}
	v.Set("name", username)
	v.Set("buddies", "1")
	v.Set("guilds", "1")
	return "/user?" + v.Encode()
}

// CollectionQuery returns the query path for one collection subtype.
//
// The default subtype=boardgame response incorrectly includes expansions
// tagged as boardgame. The documented workaround is excludesubtype on the
// boardgame request plus a second request for subtype=boardgameexpansion.
func CollectionQuery(username, subtype string) string {
	v := url.Values{}
	v.Set("username", username)
	v.Set("subtype", subtype)
	v.Set("stats", "1")
	v.Set("version", "1")
	if subtype == "boardgame" {
		v.Set("excludesubtype", "boardgameexpansion")
	}
	return "/collection?" + v.Encode()
}

// ThingQuery returns the query path for a batch of thing IDs.
func ThingQuery(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	v := url.Values{}
	v.Set("id", strings.Join(parts, ","))
	v.Set("stats", "1")
	return "/thing?" + v.Encode()
}

// PlaysQuery returns the query path for one page of logged plays.
// Pages start at 1 and hold up to 100 plays each.
func PlaysQuery(username string, page int) string {
	v := url.Values{}
	v.Set("username", username)
	v.Set("page", strconv.Itoa(page))
	return "/plays?" + v.Encode()
}

// Batches splits ids into batches of at most size elements, preserving order.
func Batches(ids []int, size int) [][]int {
	if size <= 0 {
		size = ThingBatchSize
	}
	var out [][]int
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
