package social

import "regexp"

var mentionRe = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the unique usernames mentioned as @name in text,
// in order of first appearance.
func ExtractMentions(text string) []string {
	matches := mentionRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var names []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// ResolveMentions maps mentioned usernames to user ids, keeping only users
// that are mutual followers of author.
func ResolveMentions(dir *Directory, graph *Graph, author int64, text string) []int64 {
	var ids []int64
	seen := make(map[int64]struct{})
	for _, name := range ExtractMentions(text) {
		id, ok := dir.Lookup(name)
		if !ok || id == author {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if graph.Mutual(author, id) {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
