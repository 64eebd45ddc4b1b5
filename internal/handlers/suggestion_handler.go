package handlers

import (
	"context"
	"strings"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/util"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/pkg/utils/pattern"
)

// SuggestionHandlers serves the FT.SUG* command family over RESP.
type SuggestionHandlers struct {
	store    ports.SuggestionAdmin
	resolver *alias.Resolver
	matcher  *pattern.Matcher
}

func NewSuggestionHandlers(store ports.SuggestionAdmin, resolver *alias.Resolver) *SuggestionHandlers {
	return &SuggestionHandlers{
		store:    store,
		resolver: resolver,
		matcher:  pattern.NewMatcher(),
	}
}

// HandleFTSugAdd records one use of a value: FT.SUGADD key value
func (h *SuggestionHandlers) HandleFTSugAdd(ctx context.Context, args []models.Value) models.Value {
	if err := util.ValidateArgs(args, 2); err != nil {
		return util.ErrorValue(err)
	}
	if err := util.ValidateKeyValue(args, true); err != nil {
		return util.ErrorValue(err)
	}

	if err := h.store.Save(ctx, args[0].Bulk, args[1].Bulk); err != nil {
		return util.ErrorValue(err)
	}
	return util.OK
}

// HandleFTSugDel: FT.SUGDEL key value
func (h *SuggestionHandlers) HandleFTSugDel(ctx context.Context, args []models.Value) models.Value {
	if err := util.ValidateArgs(args, 2); err != nil {
		return util.ErrorValue(err)
	}
	if err := util.ValidateKeyValue(args, false); err != nil {
		return util.ErrorValue(err)
	}

	deleted, err := h.store.Delete(ctx, args[0].Bulk, args[1].Bulk)
	if err != nil {
		return util.ErrorValue(err)
	}
	return util.ToValue(deleted)
}

// HandleFTSugGet: FT.SUGGET key query [MAX n] [WITHCOUNTS]
// An empty query returns the whole dictionary.
func (h *SuggestionHandlers) HandleFTSugGet(ctx context.Context, args []models.Value) models.Value {
	if err := util.ValidateMinArgs(args, 2); err != nil {
		return util.ErrorValue(err)
	}
	if err := util.ValidateKeyValue(args, false); err != nil {
		return util.ErrorValue(err)
	}

	max := 0
	withCounts := false
	for i := 2; i < len(args); i++ {
		switch strings.ToUpper(args[i].Bulk) {
		case "WITHCOUNTS":
			withCounts = true
		case "MAX":
			if i+1 >= len(args) {
				return models.Value{Type: "error", Str: "ERR MAX requires argument"}
			}
			n, err := util.ParseInt(args[i+1])
			if err != nil || n < 0 {
				return models.Value{Type: "error", Str: "ERR MAX must be a non-negative integer"}
			}
			max = n
			i++
		default:
			return models.Value{Type: "error", Str: "ERR syntax error"}
		}
	}

	suggestions, err := h.store.Fetch(ctx, args[0].Bulk, args[1].Bulk)
	if err != nil {
		return util.ErrorValue(err)
	}
	if max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}

	results := make([]models.Value, 0, len(suggestions)*2)
	for _, sug := range suggestions {
		results = append(results, models.Value{Type: "bulk", Bulk: sug.Value})
		if withCounts {
			results = append(results, models.Value{Type: "integer", Num: sug.UsageCount})
		}
	}
	return models.Value{Type: "array", Array: results}
}

// HandleFTSugLen: FT.SUGLEN key
func (h *SuggestionHandlers) HandleFTSugLen(ctx context.Context, args []models.Value) models.Value {
	if err := util.ValidateArgs(args, 1); err != nil {
		return util.ErrorValue(err)
	}
	if err := util.ValidateKeyValue(args, false); err != nil {
		return util.ErrorValue(err)
	}

	n, err := h.store.Len(ctx, args[0].Bulk)
	if err != nil {
		return util.ErrorValue(err)
	}
	return util.ToValue(n)
}

// HandleFTSugKeys lists keys, optionally filtered by a glob: FT.SUGKEYS [pattern]
func (h *SuggestionHandlers) HandleFTSugKeys(ctx context.Context, args []models.Value) models.Value {
	if len(args) > 1 {
		return util.ErrorValue(util.ErrWrongArgs)
	}
	glob := "*"
	if len(args) == 1 {
		glob = args[0].Bulk
	}

	keys, err := h.store.Keys(ctx)
	if err != nil {
		return util.ErrorValue(err)
	}
	return util.ToValue(h.matcher.Filter(glob, keys))
}

// HandleFieldGroup resolves a field identifier: FIELD.GROUP fieldID
func (h *SuggestionHandlers) HandleFieldGroup(_ context.Context, args []models.Value) models.Value {
	if err := util.ValidateArgs(args, 1); err != nil {
		return util.ErrorValue(err)
	}
	return util.ToValue([]string(h.resolver.Resolve(args[0].Bulk)))
}

// HandleEcho answers PING [message].
func HandleEcho(_ context.Context, args []models.Value) models.Value {
	switch len(args) {
	case 0:
		return models.Value{Type: "string", Str: "PONG"}
	case 1:
		return models.Value{Type: "bulk", Bulk: args[0].Bulk}
	default:
		return util.ErrorValue(util.ErrWrongArgs)
	}
}
