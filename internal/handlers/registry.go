package handlers

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/client"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/util"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/pkg/utils"
)

type CommandHandler func(ctx context.Context, args []models.Value) models.Value

type Registry struct {
	handlers           map[string]CommandHandler
	suggestionHandlers *SuggestionHandlers
	store              ports.SuggestionAdmin
	clients            *client.Manager
}

type RegistryOption func(*Registry)

// WithClientManager lets INFO report open connections.
func WithClientManager(m *client.Manager) RegistryOption {
	return func(r *Registry) {
		r.clients = m
	}
}

func NewRegistry(store ports.SuggestionAdmin, resolver *alias.Resolver, opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers:           make(map[string]CommandHandler),
		suggestionHandlers: NewSuggestionHandlers(store, resolver),
		store:              store,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.registerHandlers()
	return r
}

func (r *Registry) registerHandlers() {
	r.handlers["PING"] = HandleEcho
	r.handlers["INFO"] = r.handleInfo

	// Suggestion Commands
	r.handlers["FT.SUGADD"] = r.suggestionHandlers.HandleFTSugAdd
	r.handlers["FT.SUGGET"] = r.suggestionHandlers.HandleFTSugGet
	r.handlers["FT.SUGDEL"] = r.suggestionHandlers.HandleFTSugDel
	r.handlers["FT.SUGLEN"] = r.suggestionHandlers.HandleFTSugLen
	r.handlers["FT.SUGKEYS"] = r.suggestionHandlers.HandleFTSugKeys

	// Field Commands
	r.handlers["FIELD.GROUP"] = r.suggestionHandlers.HandleFieldGroup
}

// GetHandler looks a command up case-insensitively.
func (r *Registry) GetHandler(cmd string) (CommandHandler, bool) {
	handler, exists := r.handlers[strings.ToUpper(cmd)]
	return handler, exists
}

// Commands returns the registered command names, sorted.
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handleInfo answers INFO [section] with the clients, keyspace and commands
// sections.
func (r *Registry) handleInfo(ctx context.Context, args []models.Value) models.Value {
	if len(args) > 1 {
		return util.ErrorValue(util.ErrWrongArgs)
	}
	want := "all"
	if len(args) == 1 {
		want = strings.ToLower(args[0].Bulk)
	}

	var sections []utils.InfoSection
	if want == "all" || want == "clients" {
		fields := map[string]string{"connected_clients": "0"}
		if r.clients != nil {
			perTransport := make(map[string]int)
			list := r.clients.List()
			for _, c := range list {
				perTransport[c.Transport]++
			}
			fields["connected_clients"] = strconv.Itoa(len(list))
			for transport, n := range perTransport {
				fields[transport+"_clients"] = strconv.Itoa(n)
			}
		}
		sections = append(sections, utils.InfoSection{Name: "Clients", Fields: fields})
	}
	if want == "all" || want == "keyspace" {
		keys, err := r.store.Keys(ctx)
		if err != nil {
			return util.ErrorValue(err)
		}
		entries := 0
		for _, key := range keys {
			n, err := r.store.Len(ctx, key)
			if err != nil {
				return util.ErrorValue(err)
			}
			entries += n
		}
		sections = append(sections, utils.InfoSection{Name: "Keyspace", Fields: map[string]string{
			"keys":    strconv.Itoa(len(keys)),
			"entries": strconv.Itoa(entries),
		}})
	}
	if want == "all" || want == "commands" {
		sections = append(sections, utils.InfoSection{Name: "Commands", Fields: map[string]string{
			"registered": strings.Join(r.Commands(), ","),
		}})
	}
	if len(sections) == 0 {
		return models.Value{Type: "error", Str: "ERR unknown INFO section '" + args[0].Bulk + "'"}
	}
	return models.Value{Type: "bulk", Bulk: utils.FormatInfo(sections...)}
}
