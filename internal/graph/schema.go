package graph

import (
	"path"
	"strings"
)

// --- Enums ---

// Label classifies nodes in the structure graph.
type Label string

const (
	LabelFile     Label = "File"
	LabelFunction Label = "Function"
	LabelClass    Label = "Class"
	LabelEndpoint Label = "Endpoint"
)

// Labels lists every node label in schema order.
var Labels = []Label{LabelFile, LabelFunction, LabelClass, LabelEndpoint}

// EdgeType classifies relationships between nodes.
type EdgeType string

const (
	EdgeDefinedIn EdgeType = "DEFINED_IN" // Function|Class -> File
	EdgeHandledBy EdgeType = "HANDLED_BY" // Endpoint -> Function
	EdgeImports   EdgeType = "IMPORTS"    // File -> File
	EdgeCalls     EdgeType = "CALLS"      // Function -> Function
	EdgeUsedIn    EdgeType = "USED_IN"    // Function -> File
	EdgeExtends   EdgeType = "EXTENDS"    // Class -> Class
)

// EdgeTypes lists every relationship type in schema order.
var EdgeTypes = []EdgeType{EdgeDefinedIn, EdgeHandledBy, EdgeImports, EdgeCalls, EdgeUsedIn, EdgeExtends}

// Language identifies a source language routed to an extractor.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangGo         Language = "go"
	LangRust       Language = "rust"
)

// HTTPMethod is the handler kind of an Endpoint.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "get"
	MethodPost   HTTPMethod = "post"
	MethodPut    HTTPMethod = "put"
	MethodDelete HTTPMethod = "delete"
	MethodPatch  HTTPMethod = "patch"
)

// ParseHTTPMethod maps a decorator attribute name to a handler kind. The
// comparison is case-insensitive.
func ParseHTTPMethod(name string) (HTTPMethod, bool) {
	switch m := HTTPMethod(strings.ToLower(name)); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return m, true
	}
	return "", false
}

// UnknownFile is the file sentinel for nodes whose defining file is not
// known when the edge that mentions them is created.
const UnknownFile = ""

// --- Canonical records ---

// FileNode represents a source file in the structure graph.
type FileNode struct {
	Path     string   `json:"path"` // repo-relative, "/"-separated
	Name     string   `json:"name"` // display name (base name)
	Language Language `json:"language,omitempty"`
}

// NewFileNode builds a FileNode from a repo-relative path.
func NewFileNode(relPath string, lang Language) FileNode {
	p := NormalizePath(relPath)
	return FileNode{Path: p, Name: path.Base(p), Language: lang}
}

// FunctionNode is a function keyed by (name, file). Names are not globally
// unique.
type FunctionNode struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// ClassNode is a class keyed by (name, file). Bases are names only; the
// file that defines a base is unknown.
type ClassNode struct {
	Name  string   `json:"name"`
	File  string   `json:"file"`
	Bases []string `json:"bases,omitempty"`
}

// EndpointNode is an HTTP route handler keyed by (name, file, method).
type EndpointNode struct {
	Name   string     `json:"name"`
	File   string     `json:"file"`
	Method HTTPMethod `json:"method"`
}

// CallSite is an unresolved call as found by an extractor. Caller is empty
// when the extractor cannot attribute the call to a function.
type CallSite struct {
	Caller     string `json:"caller,omitempty"`
	CallerFile string `json:"callerFile"`
	Callee     string `json:"callee"`
}

// Record is the canonical extraction result for one file. Every extractor
// tier normalizes into this shape.
type Record struct {
	File      FileNode       `json:"file"`
	Functions []FunctionNode `json:"functions"`
	Classes   []ClassNode    `json:"classes"`
	Imports   []string       `json:"imports"`
	CallSites []CallSite     `json:"callSites"`
	Endpoints []EndpointNode `json:"endpoints"`
}

// Degenerate returns the File-only record emitted when every tier fails.
func Degenerate(file FileNode) *Record {
	return &Record{File: file}
}

// Empty reports whether the record carries nothing beyond its File.
func (r *Record) Empty() bool {
	return len(r.Functions) == 0 && len(r.Classes) == 0 && len(r.Imports) == 0 &&
		len(r.CallSites) == 0 && len(r.Endpoints) == 0
}

// --- Resolved edges ---

// CallEdge links a known caller to the (resolved) called function.
type CallEdge struct {
	Caller FunctionNode `json:"caller"`
	Callee FunctionNode `json:"callee"`
}

// UsedInEdge records that a function is exercised from a file.
type UsedInEdge struct {
	Function FunctionNode `json:"function"`
	File     string       `json:"file"`
}

// ImportEdge links an importing file to the file its import resolved to.
type ImportEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ExtendsEdge links a class to a parent known only by name.
type ExtendsEdge struct {
	Child  ClassNode `json:"child"`
	Parent ClassNode `json:"parent"`
}

// GraphStats summarizes the structure graph.
type GraphStats struct {
	Nodes map[Label]int    `json:"nodes"`
	Edges map[EdgeType]int `json:"edges"`
}

// NormalizePath converts an OS path to the "/"-separated form used as the
// File key.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "./")
}
