package ehrcontract

import (
	"crypto/x509"
	"fmt"
	"sort"
	"strings"

	"github.com/golang/protobuf/ptypes/timestamp"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/stretchr/testify/mock"
)

const (
	compositeKeyNamespace = "\x00"
	testTxID              = "tx-0001"
	testTxSeconds         = 1700000000 // 2023-11-14T22:13:20Z
)

// MockTransactionContext provides a transaction context for testing.
type MockTransactionContext struct {
	Stub     *MockChaincodeStub
	Identity *MockClientIdentity
}

func (m *MockTransactionContext) GetStub() shim.ChaincodeStubInterface {
	return m.Stub
}

func (m *MockTransactionContext) GetClientIdentity() cid.ClientIdentity {
	return m.Identity
}

// MockChaincodeStub is a stateful in-memory world state. The embedded
// interface satisfies the methods the contract never touches.
type MockChaincodeStub struct {
	shim.ChaincodeStubInterface
	State   map[string][]byte
	History map[string][]*queryresult.KeyModification
	TxID    string
	TxTime  int64
}

func NewMockStub() *MockChaincodeStub {
	return &MockChaincodeStub{
		State:   make(map[string][]byte),
		History: make(map[string][]*queryresult.KeyModification),
		TxID:    testTxID,
		TxTime:  testTxSeconds,
	}
}

func (m *MockChaincodeStub) GetState(key string) ([]byte, error) {
	return m.State[key], nil
}

func (m *MockChaincodeStub) PutState(key string, value []byte) error {
	m.State[key] = value
	m.History[key] = append(m.History[key], &queryresult.KeyModification{
		TxId:      m.TxID,
		Value:     value,
		Timestamp: &timestamp.Timestamp{Seconds: m.TxTime},
	})
	return nil
}

func (m *MockChaincodeStub) DelState(key string) error {
	delete(m.State, key)
	m.History[key] = append(m.History[key], &queryresult.KeyModification{
		TxId:      m.TxID,
		Timestamp: &timestamp.Timestamp{Seconds: m.TxTime},
		IsDelete:  true,
	})
	return nil
}

func (m *MockChaincodeStub) GetTxID() string {
	return m.TxID
}

func (m *MockChaincodeStub) GetTxTimestamp() (*timestamp.Timestamp, error) {
	return &timestamp.Timestamp{Seconds: m.TxTime}, nil
}

func (m *MockChaincodeStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := compositeKeyNamespace + objectType + compositeKeyNamespace
	for _, attr := range attributes {
		key += attr + compositeKeyNamespace
	}
	return key, nil
}

func (m *MockChaincodeStub) SplitCompositeKey(compositeKey string) (string, []string, error) {
	parts := strings.Split(compositeKey, compositeKeyNamespace)
	if len(parts) < 3 {
		return "", nil, fmt.Errorf("not a composite key: %q", compositeKey)
	}
	// parts[0] is the empty lead segment, parts[len-1] the empty tail
	return parts[1], parts[2 : len(parts)-1], nil
}

func (m *MockChaincodeStub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	keys := make([]string, 0, len(m.State))
	for k := range m.State {
		if startKey != "" && k < startKey {
			continue
		}
		if endKey != "" && k >= endKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]*queryresult.KV, 0, len(keys))
	for _, k := range keys {
		results = append(results, &queryresult.KV{Key: k, Value: m.State[k]})
	}
	return &MockStateQueryIterator{Results: results}, nil
}

func (m *MockChaincodeStub) GetStateByPartialCompositeKey(objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	prefix, err := m.CreateCompositeKey(objectType, attributes)
	if err != nil {
		return nil, err
	}
	// a composite key prefix already ends in the separator, so plain
	// prefix matching is range-equivalent
	keys := make([]string, 0)
	for k := range m.State {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	results := make([]*queryresult.KV, 0, len(keys))
	for _, k := range keys {
		results = append(results, &queryresult.KV{Key: k, Value: m.State[k]})
	}
	return &MockStateQueryIterator{Results: results}, nil
}

func (m *MockChaincodeStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return &MockHistoryQueryIterator{Results: m.History[key]}, nil
}

// MockStateQueryIterator walks a precomputed result slice.
type MockStateQueryIterator struct {
	Results []*queryresult.KV
	Index   int
}

func (m *MockStateQueryIterator) HasNext() bool {
	return m.Index < len(m.Results)
}

func (m *MockStateQueryIterator) Next() (*queryresult.KV, error) {
	if m.Index >= len(m.Results) {
		return nil, fmt.Errorf("no more results")
	}
	result := m.Results[m.Index]
	m.Index++
	return result, nil
}

func (m *MockStateQueryIterator) Close() error {
	return nil
}

// MockHistoryQueryIterator walks recorded key modifications.
type MockHistoryQueryIterator struct {
	Results []*queryresult.KeyModification
	Index   int
}

func (m *MockHistoryQueryIterator) HasNext() bool {
	return m.Index < len(m.Results)
}

func (m *MockHistoryQueryIterator) Next() (*queryresult.KeyModification, error) {
	if m.Index >= len(m.Results) {
		return nil, fmt.Errorf("no more results")
	}
	result := m.Results[m.Index]
	m.Index++
	return result, nil
}

func (m *MockHistoryQueryIterator) Close() error {
	return nil
}

// MockClientIdentity provides a mock client identity for testing.
type MockClientIdentity struct {
	mock.Mock
}

func (m *MockClientIdentity) GetID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClientIdentity) GetMSPID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockClientIdentity) GetAttributeValue(attrName string) (value string, found bool, err error) {
	args := m.Called(attrName)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockClientIdentity) AssertAttributeValue(attrName, attrValue string) error {
	args := m.Called(attrName, attrValue)
	return args.Error(0)
}

func (m *MockClientIdentity) GetX509Certificate() (*x509.Certificate, error) {
	args := m.Called()
	return args.Get(0).(*x509.Certificate), args.Error(1)
}

// newTestContext wires a fresh stub and identity into a context.
func newTestContext() (*MockTransactionContext, *MockChaincodeStub, *MockClientIdentity) {
	stub := NewMockStub()
	identity := new(MockClientIdentity)
	ctx := &MockTransactionContext{Stub: stub, Identity: identity}
	return ctx, stub, identity
}

// contextFor wraps an existing stub with a fresh caller identity, so a test
// can act as several parties against the same world state.
func contextFor(stub *MockChaincodeStub, role, uuid, mspID string) *MockTransactionContext {
	identity := new(MockClientIdentity)
	setCaller(identity, role, uuid, mspID)
	return &MockTransactionContext{Stub: stub, Identity: identity}
}

// setCaller configures the identity mock as an enrolled caller with the
// given role and uuid attributes.
func setCaller(identity *MockClientIdentity, role, uuid, mspID string) {
	identity.On("GetID").Return("x509::CN="+uuid, nil)
	identity.On("GetAttributeValue", "role").Return(role, role != "", nil)
	identity.On("GetAttributeValue", "uuid").Return(uuid, uuid != "", nil)
	identity.On("GetMSPID").Return(mspID, nil)
}
