// Package engine provides the task lifecycle engine. It creates tasks in the
// running state, arms a one-shot timer per task that marks it completed after
// CompletionDelay, and layers the completed_at rule on top of store updates.
package engine
