// Package document defines the persisted document record and the ordered
// processing stages it moves through.
//
// A Record is the unit of work the pipeline engine operates on: file identity
// (content hash, extension, language), accumulated extracted texts, generated
// extras, author attributions, and a ProcStage block describing where in the
// pipeline the record currently sits. Stage values carry a strict total order
// via StageIndex; StageCompleted sorts after every other stage.
//
// Treat this package as the single source of truth for stage ordering; when
// you add a stage, extend the index table and the pipeline dispatch together.
package document
