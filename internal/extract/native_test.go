package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/structgraph/internal/graph"
)

const pythonService = `import os.path as p
from .models import Item
from . import utils
from pkg.sub import *


class Service(Base, mod.Mixin, metaclass=Meta):
    def run(self):
        helper()
        self.db.query()


@router.get("/items")
async def list_items():
    def inner():
        fetch()
    return inner()


@app.route("/health")
def health():
    pass
`

func TestPythonExtractor(t *testing.T) {
	src := Source{Path: "api/service.py", Language: graph.LangPython, Content: []byte(pythonService)}

	rec, err := NewPythonExtractor().Extract(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []string{"os.path", ".models.Item", ".utils", "pkg.sub.*"}, rec.Imports)

	svc := findClass(rec, "Service")
	require.NotNil(t, svc)
	assert.Equal(t, []string{"Base", "mod.Mixin"}, svc.Bases)
	assert.Equal(t, "api/service.py", svc.File)

	assert.Equal(t, []string{"run", "list_items", "inner", "health"}, funcNames(rec))

	assert.Equal(t, []graph.EndpointNode{
		{Name: "list_items", File: "api/service.py", Method: graph.MethodGet},
	}, rec.Endpoints)

	file := "api/service.py"
	assert.ElementsMatch(t, []graph.CallSite{
		{Caller: "run", CallerFile: file, Callee: "helper"},
		{Caller: "run", CallerFile: file, Callee: "self.db.query"},
		{Caller: "list_items", CallerFile: file, Callee: "router.get"},
		{Caller: "list_items", CallerFile: file, Callee: "fetch"},
		{Caller: "list_items", CallerFile: file, Callee: "inner"},
		{Caller: "inner", CallerFile: file, Callee: "fetch"},
		{Caller: "health", CallerFile: file, Callee: "app.route"},
	}, rec.CallSites)
}

func TestPythonExtractor_SyntaxError(t *testing.T) {
	src := Source{Path: "bad.py", Language: graph.LangPython, Content: []byte("def broken(:\n    return\n")}

	_, err := NewPythonExtractor().Extract(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailure)

	var xe *ExtractError
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, TierNative, xe.Tier)
}

func TestPythonExtractor_NonNameBase(t *testing.T) {
	src := Source{Path: "g.py", Language: graph.LangPython, Content: []byte("class G(Generic[T]):\n    pass\n")}

	rec, err := NewPythonExtractor().Extract(context.Background(), src)
	require.NoError(t, err)
	g := findClass(rec, "G")
	require.NotNil(t, g)
	assert.Equal(t, []string{"Generic[T]"}, g.Bases)
}

const goService = `package svc

import (
	"fmt"
	str "strings"
)

type Base struct{}

type Service struct {
	Base
	*log.Logger
	name string
}

type Runner interface {
	fmt.Stringer
	Run() error
}

type ID int

func helper() {}

func (s *Service) Run() error {
	helper()
	fmt.Println(str.ToUpper(s.name))
	go func() { s.Logger.Printf("x") }()
	return nil
}
`

func TestGoExtractor(t *testing.T) {
	src := Source{Path: "svc/service.go", Language: graph.LangGo, Content: []byte(goService)}

	rec, err := NewGoExtractor().Extract(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []string{"fmt", "strings"}, rec.Imports)
	assert.Equal(t, []string{"Base", "Service", "Runner"}, classNames(rec))
	assert.Empty(t, findClass(rec, "Base").Bases)
	assert.Equal(t, []string{"Base", "log.Logger"}, findClass(rec, "Service").Bases)
	assert.Equal(t, []string{"fmt.Stringer"}, findClass(rec, "Runner").Bases)

	assert.Equal(t, []string{"helper", "Run"}, funcNames(rec))
	assert.Equal(t, []string{"helper", "fmt.Println", "str.ToUpper", "s.Logger.Printf"}, callees(rec))
	for _, c := range rec.CallSites {
		assert.Equal(t, "Run", c.Caller)
	}
	assert.Empty(t, rec.Endpoints)
}

func TestGoExtractor_ParseError(t *testing.T) {
	src := Source{Path: "bad.go", Language: graph.LangGo, Content: []byte("package x\nfunc {")}

	_, err := NewGoExtractor().Extract(context.Background(), src)
	assert.ErrorIs(t, err, ErrParseFailure)
}

func TestGoExtractor_Fixture(t *testing.T) {
	src := Source{Path: "testdata/fixtures/go_project/service.go", Language: graph.LangGo, Content: readFixture(t, "testdata/fixtures/go_project/service.go")}

	rec, err := NewGoExtractor().Extract(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"NewUserService", "GetUser", "CreateUser"}, funcNames(rec))
	assert.Equal(t, []string{"UserService"}, classNames(rec))
	assert.Contains(t, rec.CallSites, graph.CallSite{Caller: "CreateUser", CallerFile: src.Path, Callee: "newUser"})
	assert.Contains(t, rec.CallSites, graph.CallSite{Caller: "GetUser", CallerFile: src.Path, Callee: "s.repo.FindByID"})
}
