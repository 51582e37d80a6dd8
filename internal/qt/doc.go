// Package qt derives Qt build invocations from a task configuration.
//
// It maps build modes to steps, resolves per-OS conventions, computes the
// derived environment (QT_BUILD, QML2_IMPORT_PATH, ...) and produces the
// argument vectors for qmake, make, unit tests, repogen and binarycreator.
// Nothing in this package launches processes.
package qt
