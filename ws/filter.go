package ws

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	lru "github.com/hashicorp/golang-lru"
	"github.com/raceline/typerace/filter"
	"github.com/raceline/typerace/globals"
	"github.com/raceline/typerace/types"
)

// cache of compiled target filter programs, keyed by expression source
var filterCache *lru.Cache

func init() {
	filterCache, _ = lru.New(128)
}

func compileFilter(expression string) (*vm.Program, error) {
	if cached, ok := filterCache.Get(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.Env(filter.Env{}))
	if err != nil {
		return nil, err
	}
	filterCache.Add(expression, program)
	return program, nil
}

// RunFilterEvent evaluates a room event's target filter with this client's
// user as the target. Events without a filter go to everyone, events with a
// broken filter go to no-one.
func (c *Client) RunFilterEvent(event *types.RoomEvent, room *types.Room) bool {
	if event.TargetFilter == "" {
		return true
	}
	program, err := compileFilter(event.TargetFilter)
	if err != nil {
		globals.AppLogger.Error("could not compile target filter", "filter", event.TargetFilter, "error", err)
		return false
	}
	env := filter.Env{
		Source: filter.User{Id: event.FromUserId},
		Target: filter.User{Id: c.user.Id, Name: c.user.Name},
		Name:   event.Name,
	}
	if room != nil {
		env.Room = filter.Room{Id: room.Id, OwnerId: room.OwnerId, Status: room.Status}
	}
	if !event.Created.IsZero() {
		env.Created = event.Created.Unix()
	}
	result, err := expr.Run(program, env)
	if err != nil {
		globals.AppLogger.Error("could not run target filter", "filter", event.TargetFilter, "error", err)
		return false
	}
	matched, ok := result.(bool)
	return ok && matched
}
