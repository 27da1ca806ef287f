package moderation

import (
	"context"
	"sync"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
)

var _ documentStore = &documentStoreMock{}

type documentStoreMock struct {
	CreateFunc       func(ctx context.Context, collection string, data map[string]any) (string, error)
	CreateWithIDFunc func(ctx context.Context, collection string, id string, data map[string]any) error
	DeleteFunc       func(ctx context.Context, collection string, id string) error
	GetFunc          func(ctx context.Context, collection string, id string) (docstore.Document, error)
	UpdateFunc       func(ctx context.Context, collection string, id string, patch map[string]any) error

	calls struct {
		Create []struct {
			Ctx        context.Context
			Collection string
			Data       map[string]any
		}
		CreateWithID []struct {
			Ctx        context.Context
			Collection string
			ID         string
			Data       map[string]any
		}
		Delete []struct {
			Ctx        context.Context
			Collection string
			ID         string
		}
		Get []struct {
			Ctx        context.Context
			Collection string
			ID         string
		}
		Update []struct {
			Ctx        context.Context
			Collection string
			ID         string
			Patch      map[string]any
		}
	}
	lockCreate       sync.RWMutex
	lockCreateWithID sync.RWMutex
	lockDelete       sync.RWMutex
	lockGet          sync.RWMutex
	lockUpdate       sync.RWMutex
}

func (mock *documentStoreMock) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	if mock.CreateFunc == nil {
		panic("documentStoreMock.CreateFunc: method is nil but documentStore.Create was just called")
	}
	callInfo := struct {
		Ctx        context.Context
		Collection string
		Data       map[string]any
	}{Ctx: ctx, Collection: collection, Data: data}
	mock.lockCreate.Lock()
	mock.calls.Create = append(mock.calls.Create, callInfo)
	mock.lockCreate.Unlock()
	return mock.CreateFunc(ctx, collection, data)
}

func (mock *documentStoreMock) CreateCalls() []struct {
	Ctx        context.Context
	Collection string
	Data       map[string]any
} {
	mock.lockCreate.RLock()
	calls := mock.calls.Create
	mock.lockCreate.RUnlock()
	return calls
}

func (mock *documentStoreMock) CreateWithID(ctx context.Context, collection string, id string, data map[string]any) error {
	if mock.CreateWithIDFunc == nil {
		panic("documentStoreMock.CreateWithIDFunc: method is nil but documentStore.CreateWithID was just called")
	}
	callInfo := struct {
		Ctx        context.Context
		Collection string
		ID         string
		Data       map[string]any
	}{Ctx: ctx, Collection: collection, ID: id, Data: data}
	mock.lockCreateWithID.Lock()
	mock.calls.CreateWithID = append(mock.calls.CreateWithID, callInfo)
	mock.lockCreateWithID.Unlock()
	return mock.CreateWithIDFunc(ctx, collection, id, data)
}

func (mock *documentStoreMock) CreateWithIDCalls() []struct {
	Ctx        context.Context
	Collection string
	ID         string
	Data       map[string]any
} {
	mock.lockCreateWithID.RLock()
	calls := mock.calls.CreateWithID
	mock.lockCreateWithID.RUnlock()
	return calls
}

func (mock *documentStoreMock) Delete(ctx context.Context, collection string, id string) error {
	if mock.DeleteFunc == nil {
		panic("documentStoreMock.DeleteFunc: method is nil but documentStore.Delete was just called")
	}
	callInfo := struct {
		Ctx        context.Context
		Collection string
		ID         string
	}{Ctx: ctx, Collection: collection, ID: id}
	mock.lockDelete.Lock()
	mock.calls.Delete = append(mock.calls.Delete, callInfo)
	mock.lockDelete.Unlock()
	return mock.DeleteFunc(ctx, collection, id)
}

func (mock *documentStoreMock) DeleteCalls() []struct {
	Ctx        context.Context
	Collection string
	ID         string
} {
	mock.lockDelete.RLock()
	calls := mock.calls.Delete
	mock.lockDelete.RUnlock()
	return calls
}

func (mock *documentStoreMock) Get(ctx context.Context, collection string, id string) (docstore.Document, error) {
	if mock.GetFunc == nil {
		panic("documentStoreMock.GetFunc: method is nil but documentStore.Get was just called")
	}
	callInfo := struct {
		Ctx        context.Context
		Collection string
		ID         string
	}{Ctx: ctx, Collection: collection, ID: id}
	mock.lockGet.Lock()
	mock.calls.Get = append(mock.calls.Get, callInfo)
	mock.lockGet.Unlock()
	return mock.GetFunc(ctx, collection, id)
}

func (mock *documentStoreMock) GetCalls() []struct {
	Ctx        context.Context
	Collection string
	ID         string
} {
	mock.lockGet.RLock()
	calls := mock.calls.Get
	mock.lockGet.RUnlock()
	return calls
}

func (mock *documentStoreMock) Update(ctx context.Context, collection string, id string, patch map[string]any) error {
	if mock.UpdateFunc == nil {
		panic("documentStoreMock.UpdateFunc: method is nil but documentStore.Update was just called")
	}
	callInfo := struct {
		Ctx        context.Context
		Collection string
		ID         string
		Patch      map[string]any
	}{Ctx: ctx, Collection: collection, ID: id, Patch: patch}
	mock.lockUpdate.Lock()
	mock.calls.Update = append(mock.calls.Update, callInfo)
	mock.lockUpdate.Unlock()
	return mock.UpdateFunc(ctx, collection, id, patch)
}

func (mock *documentStoreMock) UpdateCalls() []struct {
	Ctx        context.Context
	Collection string
	ID         string
	Patch      map[string]any
} {
	mock.lockUpdate.RLock()
	calls := mock.calls.Update
	mock.lockUpdate.RUnlock()
	return calls
}

// totalCalls counts every recorded call across all methods.
func (mock *documentStoreMock) totalCalls() int {
	return len(mock.CreateCalls()) + len(mock.CreateWithIDCalls()) + len(mock.DeleteCalls()) +
		len(mock.GetCalls()) + len(mock.UpdateCalls())
}
