// Package appwrite implements docstore.Store on top of the Appwrite
// Databases REST API.
//
// A Client is scoped to one project and one database; collections are
// addressed per call. Queries are sent as JSON-encoded queries[]
// parameters, the format Appwrite 1.5 and later expects.
//
// Appwrite has no server-side find-or-increment, so Client does not
// implement docstore.Incrementer and counter updates stay read-modify-write.
package appwrite
