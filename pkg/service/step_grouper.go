package service

import "github.com/muizidn/cs-ai-help-admin-management/pkg/models"

// UnknownStepBucket holds steps whose type is not one of models.StepTypes.
const UnknownStepBucket = "unknown"

// GroupSteps buckets steps by type, keeping their original order within each bucket. Every
// known type has a bucket, even when empty; the unknown bucket only exists when needed.
func GroupSteps(steps []models.ExecutionStep) map[string][]models.ExecutionStep {
	grouped := make(map[string][]models.ExecutionStep, len(models.StepTypes)+1)
	for _, t := range models.StepTypes {
		grouped[string(t)] = []models.ExecutionStep{}
	}
	for _, step := range steps {
		key := UnknownStepBucket
		if step.StepType.Known() {
			key = string(step.StepType.Normalize())
		}
		grouped[key] = append(grouped[key], step)
	}
	return grouped
}
