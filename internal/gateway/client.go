package gateway

import (
	"crypto/x509"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/medledger/ehr-dlt/pkg/config"
)

// ContractInvoker abstracts the two Fabric transaction modes so handlers can
// be tested without a running peer. Submit orders a transaction and blocks
// until commit; Evaluate queries a single peer without ordering.
type ContractInvoker interface {
	Submit(function string, args ...string) ([]byte, error)
	Evaluate(function string, args ...string) ([]byte, error)
}

// FabricClient owns the gRPC connection and gateway session to the peer.
type FabricClient struct {
	connection *grpc.ClientConn
	gateway    *client.Gateway
	contract   *client.Contract
}

// Connect dials the gateway peer and binds to the configured channel and
// chaincode. The caller must Close the client when done.
func Connect(cfg *config.FabricConfig) (*FabricClient, error) {
	connection, err := newGrpcConnection(cfg)
	if err != nil {
		return nil, err
	}

	id, err := newIdentity(cfg)
	if err != nil {
		connection.Close()
		return nil, err
	}

	sign, err := newSign(cfg)
	if err != nil {
		connection.Close()
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(connection),
		client.WithEvaluateTimeout(5*time.Second),
		client.WithEndorseTimeout(15*time.Second),
		client.WithSubmitTimeout(5*time.Second),
		client.WithCommitStatusTimeout(1*time.Minute),
	)
	if err != nil {
		connection.Close()
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	network := gw.GetNetwork(cfg.ChannelName)
	contract := network.GetContract(cfg.ChaincodeName)

	return &FabricClient{
		connection: connection,
		gateway:    gw,
		contract:   contract,
	}, nil
}

func (c *FabricClient) Submit(function string, args ...string) ([]byte, error) {
	return c.contract.SubmitTransaction(function, args...)
}

func (c *FabricClient) Evaluate(function string, args ...string) ([]byte, error) {
	return c.contract.EvaluateTransaction(function, args...)
}

// Close tears down the gateway session and the underlying connection.
func (c *FabricClient) Close() error {
	c.gateway.Close()
	return c.connection.Close()
}

// newGrpcConnection creates a gRPC connection to the gateway peer secured
// with the peer's TLS certificate.
func newGrpcConnection(cfg *config.FabricConfig) (*grpc.ClientConn, error) {
	certificate, err := loadCertificate(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(certificate)
	transportCredentials := credentials.NewClientTLSFromCert(certPool, cfg.GatewayPeer)

	connection, err := grpc.Dial(cfg.PeerEndpoint, grpc.WithTransportCredentials(transportCredentials))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}
	return connection, nil
}

// newIdentity creates the client identity from the enrollment certificate.
func newIdentity(cfg *config.FabricConfig) (*identity.X509Identity, error) {
	certificate, err := loadCertificate(cfg.CertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment certificate: %w", err)
	}
	return identity.NewX509Identity(cfg.MSPID, certificate)
}

// newSign creates a signing function from the private key directory. Fabric
// CA stores the key under a generated filename, so the directory's single
// entry is taken.
func newSign(cfg *config.FabricConfig) (identity.Sign, error) {
	files, err := os.ReadDir(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no private key found in %s", cfg.KeyPath)
	}

	privateKeyPEM, err := os.ReadFile(path.Join(cfg.KeyPath, files[0].Name()))
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	privateKey, err := identity.PrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return identity.NewPrivateKeySign(privateKey)
}

func loadCertificate(filename string) (*x509.Certificate, error) {
	certificatePEM, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return identity.CertificateFromPEM(certificatePEM)
}
