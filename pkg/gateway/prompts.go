package gateway

import (
	"fmt"

	"momentum/pkg/playbook"
)

// SystemPrompt is shared by every operation; both the server function and
// the client-direct path send it.
const SystemPrompt = `You are a pragmatic momentum coach. You turn a vague focus area into a
concrete, ordered plan of small actions. Be specific and direct. Respond
with JSON only: a single JSON value with no markdown fences and no prose
before or after it.`

func generatePrompt(focusArea string) string {
	return fmt.Sprintf(`Build an action playbook for this focus area: %q

Return a JSON object with exactly these fields:
{
  "focusArea": string, the focus area restated in one sharp sentence,
  "analysis": string, 2-3 sentences on the current situation,
  "opportunities": {
    "internal": string, a strength to lean on,
    "external": string, an outside lever or resource,
    "hidden": string, a non-obvious angle
  },
  "actions": [six objects, each {"id": string, "title": string, "description": string, "horizon": string, "rationale": string}],
  "pitfalls": [{"title": string, "desc": string}, ...]
}

Rules for "actions": exactly %d items. The first %d have "horizon": "immediate",
the next %d have "horizon": "medium", the last %d has "horizon": "long".
All three "opportunities" fields must be non-empty. "pitfalls" may be empty
but the field must be present.`,
		focusArea,
		playbook.GeneratedActionCount,
		playbook.ImmediateActionCount,
		playbook.MediumActionCount,
		playbook.LongActionCount)
}

func rerollPrompt(focusArea, rejectedTitle string) string {
	return fmt.Sprintf(`The user rejected this action from their playbook: %q
Focus area: %q

Propose one replacement action that attacks the same goal from a different
angle. Return a JSON object with exactly these fields:
{"id": string, "title": string, "description": string, "horizon": "immediate", "rationale": string}

The replacement must not be a rewording of the rejected action.`,
		rejectedTitle, focusArea)
}

func breakdownPrompt(parentTask string) string {
	return fmt.Sprintf(`Break this task into 3-5 micro-steps, each completable in under 15
minutes: %q

Return a JSON array of objects, each {"id": string, "title": string}.
Order the steps so the first one can be started right now.`,
		parentTask)
}

func classifyBlockPrompt(stuckInput, frictionInput string) string {
	return fmt.Sprintf(`A user described where they are stuck and what the friction feels like.

Stuck on: %q
Friction: %q

Classify the block into one of: "clarity", "overwhelm", "fear",
"environment", "energy". Return a JSON object with exactly these fields:
{"blockPattern": string, "reasoning": string, 1-2 sentences}`,
		stuckInput, frictionInput)
}

func momentumSequencePrompt(stuckInput, frictionInput, blockPattern string) string {
	return fmt.Sprintf(`Design a three-move momentum sequence for a user with a %q block.

Stuck on: %q
Friction: %q

Return a JSON object with exactly these fields:
{
  "activationMove": string, something doable in the next 5 minutes,
  "momentumMove": string, a 30-60 minute follow-through for today,
  "systemsMove": string, a recurring structure for this week
}

Each move must be concrete enough to start without further planning.`,
		blockPattern, stuckInput, frictionInput)
}
