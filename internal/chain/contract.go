package chain

// identityRegistryABI is the identity-registry contract interface: register
// an identity hash per user, flip its verified flag, and read it back.
const identityRegistryABI = `[
  {
    "inputs": [
      {"internalType": "string", "name": "userId", "type": "string"},
      {"internalType": "string", "name": "documentHash", "type": "string"},
      {"internalType": "string", "name": "verificationLevel", "type": "string"}
    ],
    "name": "registerIdentity",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "userId", "type": "string"}],
    "name": "getIdentity",
    "outputs": [
      {"internalType": "string", "name": "documentHash", "type": "string"},
      {"internalType": "string", "name": "verificationLevel", "type": "string"},
      {"internalType": "uint256", "name": "timestamp", "type": "uint256"},
      {"internalType": "bool", "name": "isVerified", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "userId", "type": "string"}],
    "name": "verifyIdentity",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "userId", "type": "string"}],
    "name": "revokeIdentity",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "userId", "type": "string"}],
    "name": "isIdentityVerified",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

// IdentityRecord is the on-chain identity entry for a user.
type IdentityRecord struct {
	DocumentHash      string
	VerificationLevel string
	Timestamp         int64
	IsVerified        bool
}
