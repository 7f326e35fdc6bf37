// Package blindrsa implements textbook RSA blind signatures (Chaum, 1983).
//
// A message owner blinds the SHA-256 digest m of a message with a random factor r,
// a signer raises the blinded value to its private exponent without learning m, and
// the owner divides r back out to obtain an ordinary RSA signature m^d mod N:
//
//	blinded   = m · r^e          mod N
//	blind sig = blinded^d        mod N = m^d · r mod N
//	signature = blind sig · r⁻¹  mod N = m^d       mod N
//
// No padding is applied. The package illustrates the arithmetic identity behind RSA
// blind signatures and is not a hardened signature scheme.
//
// # Quick Start
//
//	import "github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
//
//	keys, err := blindrsa.GenerateKeys(2048)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	signer, _ := blindrsa.NewSigner(keys.Private)
//	client, _ := blindrsa.NewClient(keys.Public, signer)
//
//	result, err := client.Sign(ctx, []byte("This is my secret vote: Candidate A"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("signature: %s (valid: %v)\n", blindrsa.EncodeInt(result.Signature), result.Verified)
//
// # Step by step
//
// The owner and the signer usually live in different processes. Each round is a
// separate call, and the only owner state carried between rounds is the
// BlindingContext value returned by Blind:
//
//	owner, _ := blindrsa.NewMessageOwner(keys.Public)
//	bc, err := owner.Blind(message)              // owner, round 1
//	blindSig, err := signer.SignBlinded(bc.BlindedValue()) // signer, round 2
//	sig, err := owner.Unblind(blindSig, bc)      // owner, round 3
//	ok, err := owner.Verify(message, sig)
//
// Only bc.BlindedValue() may be sent to the signer. The blinding factor stays with
// the owner.
package blindrsa
