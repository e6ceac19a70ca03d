// Package annotation turns draft task data into annotation results: the
// entries an annotation tool preloads into a task so that annotators edit a
// draft instead of starting from nothing.
//
// Which layout component a draft field fills, and with which result type,
// comes from the project's annotation registry. Components produced by
// repeaters are found in the rendered layout, so a field such as a nested
// conversation yields one result per rendered component.
package annotation
