package core

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
)

type MockAssetCustodian struct {
	ctrl     *gomock.Controller
	recorder *MockAssetCustodianMockRecorder
}

type MockAssetCustodianMockRecorder struct {
	mock *MockAssetCustodian
}

func NewMockAssetCustodian(ctrl *gomock.Controller) *MockAssetCustodian {
	mock := &MockAssetCustodian{ctrl: ctrl}
	mock.recorder = &MockAssetCustodianMockRecorder{mock}
	return mock
}

func (m *MockAssetCustodian) EXPECT() *MockAssetCustodianMockRecorder {
	return m.recorder
}

func (m *MockAssetCustodian) Transfer(ctx context.Context, asset AssetRef, from, to Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Transfer", ctx, asset, from, to)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockAssetCustodianMockRecorder) Transfer(ctx, asset, from, to interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Transfer", reflect.TypeOf((*MockAssetCustodian)(nil).Transfer), ctx, asset, from, to)
}

func (m *MockAssetCustodian) CurrentHolder(ctx context.Context, asset AssetRef) (Address, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CurrentHolder", ctx, asset)
	ret0, _ := ret[0].(Address)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockAssetCustodianMockRecorder) CurrentHolder(ctx, asset interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CurrentHolder", reflect.TypeOf((*MockAssetCustodian)(nil).CurrentHolder), ctx, asset)
}

type MockValueTransfer struct {
	ctrl     *gomock.Controller
	recorder *MockValueTransferMockRecorder
}

type MockValueTransferMockRecorder struct {
	mock *MockValueTransfer
}

func NewMockValueTransfer(ctrl *gomock.Controller) *MockValueTransfer {
	mock := &MockValueTransfer{ctrl: ctrl}
	mock.recorder = &MockValueTransferMockRecorder{mock}
	return mock
}

func (m *MockValueTransfer) EXPECT() *MockValueTransferMockRecorder {
	return m.recorder
}

func (m *MockValueTransfer) Pay(ctx context.Context, to Address, amount int64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Pay", ctx, to, amount)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockValueTransferMockRecorder) Pay(ctx, to, amount interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Pay", reflect.TypeOf((*MockValueTransfer)(nil).Pay), ctx, to, amount)
}
