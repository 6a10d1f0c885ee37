// Package events carries queue engine notifications to in-process observers
// such as the touch console. Publishing never blocks the engine; slow
// subscribers lose their oldest pending events first.
package events
