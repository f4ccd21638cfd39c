package solve

import (
	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/pool"
)

// CollectResult is phase 1's output: every instance statically reachable
// from the target, in BFS discovery order.
type CollectResult struct {
	Target        model.Id
	Configuration map[model.Id]model.Instance
	Order         []model.Id
}

// Collect runs spec.md section 4.8 phase 1: BFS from targetId over
// instance.relationships, following only the statically extractable ids
// (SimpleIds, Ids, PoolBased{selection: Ids}). Filter/pool/unresolved
// selections are deferred to Prepare.
func Collect(u pool.Universe, targetId model.Id) (CollectResult, error) {
	target, ok := u.InstanceByID(targetId)
	if !ok {
		return CollectResult{}, apperr.New(apperr.NotFound, "solve target %s not found", targetId)
	}

	result := CollectResult{
		Target:        targetId,
		Configuration: map[model.Id]model.Instance{targetId: target},
		Order:         []model.Id{targetId},
	}

	queue := []model.Id{targetId}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		in := result.Configuration[id]

		for _, sel := range in.Relationships {
			ids, ok := sel.StaticIds()
			if !ok {
				continue
			}
			for _, childId := range ids {
				if _, seen := result.Configuration[childId]; seen {
					continue
				}
				child, ok := u.InstanceByID(childId)
				if !ok {
					// Dangling static reference: left for Prepare/validate to
					// flag, Collect itself only walks what exists.
					continue
				}
				result.Configuration[childId] = child
				result.Order = append(result.Order, childId)
				queue = append(queue, childId)
			}
		}
	}

	return result, nil
}
