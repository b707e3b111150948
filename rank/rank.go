// Package rank implements the move ranker shared by the alphabeta and pns
// searchers: a pure integer score over a legal move that approximates
// mating promise at OR plies and defensive testing value at AND plies.
//
// Bitboard attack helpers here are grounded on the teacher's
// engine/init.go king-move table construction (same shift-and-mask
// technique, extended to knights) and on engine/moveordering.go's
// GetPieceTypeAtPosition / MVV table for capture scoring.
package rank

import (
	"math/bits"

	"github.com/Bubblyworld/dragontoothmg"

	"mateforge/position"
)

// Move aliases the generator's move type.
type Move = position.Move

const (
	bonusGivesCheck      = 8000
	bonusCaptureChecker  = 1000
	bonusInterposition   = 400
	bonusKnightCheck     = 400
	bonusQRAdjacentCheck = 500
	bonusMateNow         = 4096
	penaltyPerReply      = 8
	bonusAdvancedPush    = 1000
	bonusKingApproach    = 480
	kingApproachDistUnit = 20
	bonusFreePawn        = 500
	bonusCounterCheck    = 128
	counterCheckDistUnit = 32
	pinSetupThreshold    = 6000

	pawnEdgeDistUnit       = 64
	pawnRelRankUnit        = 128
	oppKingMobilityPenalty = 40
)

var mvvValue = map[dragontoothmg.Piece]int{
	dragontoothmg.Pawn:   100,
	dragontoothmg.Knight: 300,
	dragontoothmg.Bishop: 305,
	dragontoothmg.Rook:   500,
	dragontoothmg.Queen:  900,
}

var readyCheckBonus = map[dragontoothmg.Piece]int{
	dragontoothmg.Knight: 600,
	dragontoothmg.Queen:  500,
	dragontoothmg.Rook:   400,
	dragontoothmg.Bishop: 300,
}

var kingRingBonus = map[dragontoothmg.Piece]int{
	dragontoothmg.Knight: 256,
	dragontoothmg.Queen:  128,
	dragontoothmg.Rook:   96,
	dragontoothmg.Bishop: 64,
}

var pinSetupBonus = map[dragontoothmg.Piece]int{
	dragontoothmg.Bishop: 200,
	dragontoothmg.Rook:   300,
	dragontoothmg.Queen:  350,
}

const (
	fileA uint64 = 0x0101010101010101
	fileH uint64 = 0x8080808080808080
)

var knightAttacks [64]uint64
var kingAttacks [64]uint64

func init() {
	for sq := 0; sq < 64; sq++ {
		bb := uint64(1) << uint(sq)
		kingAttacks[sq] = kingAttackBB(bb)
		knightAttacks[sq] = knightAttackBB(bb)
	}
}

// kingAttackBB ports engine/init.go's initPositionBB king-move table build
// verbatim: eight shift-and-mask terms guarded by file wraparound.
func kingAttackBB(bb uint64) uint64 {
	top := bb >> 8
	topRight := (bb >> 8 >> 1) &^ fileH
	topLeft := (bb >> 8 << 1) &^ fileA
	right := (bb >> 1) &^ fileH
	left := (bb << 1) &^ fileA
	bottom := bb << 8
	bottomRight := (bb << 8 >> 1) &^ fileH
	bottomLeft := (bb << 8 << 1) &^ fileA
	return top | topRight | topLeft | right | left | bottom | bottomRight | bottomLeft
}

// knightAttackBB applies the same shift-and-mask technique to the knight's
// eight L-shaped jumps.
func knightAttackBB(bb uint64) uint64 {
	fileB := fileA << 1
	fileG := fileH >> 1
	notAB := ^(fileA | fileB)
	notGH := ^(fileG | fileH)
	notA := ^fileA
	notH := ^fileH
	return ((bb << 6) & notGH) |
		((bb << 10) & notAB) |
		((bb << 15) & notH) |
		((bb << 17) & notA) |
		((bb >> 6) & notAB) |
		((bb >> 10) & notGH) |
		((bb >> 15) & notA) |
		((bb >> 17) & notH)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func chebyshevDist(a, b uint8) int {
	dr := abs(int(a/8) - int(b/8))
	df := abs(int(a%8) - int(b%8))
	if dr > df {
		return dr
	}
	return df
}

func onStraight(a, b uint8) bool { return a/8 == b/8 || a%8 == b%8 }

func onDiagonal(a, b uint8) bool {
	return a != b && abs(int(a/8)-int(b/8)) == abs(int(a%8)-int(b%8))
}

// pieceTypeAt mirrors engine/moveordering.go's GetPieceTypeAtPosition.
func pieceTypeAt(bb *dragontoothmg.Bitboards, sq uint8) (dragontoothmg.Piece, bool) {
	mask := uint64(1) << sq
	switch {
	case bb.Pawns&mask != 0:
		return dragontoothmg.Pawn, true
	case bb.Knights&mask != 0:
		return dragontoothmg.Knight, true
	case bb.Bishops&mask != 0:
		return dragontoothmg.Bishop, true
	case bb.Rooks&mask != 0:
		return dragontoothmg.Rook, true
	case bb.Queens&mask != 0:
		return dragontoothmg.Queen, true
	case bb.Kings&mask != 0:
		return dragontoothmg.King, true
	}
	return 0, false
}

// PieceAt exposes pieceTypeAt for other packages (alphabeta's bishop
// pruning rule needs the same "what piece sits here" query).
func PieceAt(bb *dragontoothmg.Bitboards, sq uint8) (dragontoothmg.Piece, bool) {
	return pieceTypeAt(bb, sq)
}

// ReadyCheck reports whether the piece moving in m would, from its
// destination, threaten the opponent king geometrically — the "piece can
// reach a checking square next ply" test alphabeta's extension rule
// needs (spec.md §4.2).
func ReadyCheck(pos *position.Position, m Move) bool {
	b := pos.Board()
	ownBB, oppBB := sideBitboards(b)
	piece, ok := pieceTypeAt(&ownBB, m.From())
	if !ok {
		return false
	}
	theirKingSq := uint8(bits.TrailingZeros64(oppBB.Kings))
	return hasReadyCheckFrom(piece, m.To(), theirKingSq)
}

func sideBitboards(b *dragontoothmg.Board) (own, opp dragontoothmg.Bitboards) {
	if b.Wtomove {
		return b.White, b.Black
	}
	return b.Black, b.White
}

func occupancy(b *dragontoothmg.Board) uint64 {
	return b.White.Pawns | b.White.Knights | b.White.Bishops | b.White.Rooks | b.White.Queens | b.White.Kings |
		b.Black.Pawns | b.Black.Knights | b.Black.Bishops | b.Black.Rooks | b.Black.Queens | b.Black.Kings
}

func attackSetFrom(b *dragontoothmg.Board, piece dragontoothmg.Piece, sq uint8) uint64 {
	switch piece {
	case dragontoothmg.Knight:
		return knightAttacks[sq]
	case dragontoothmg.Bishop:
		return dragontoothmg.CalculateBishopMoveBitboard(sq, occupancy(b))
	case dragontoothmg.Rook:
		return dragontoothmg.CalculateRookMoveBitboard(sq, occupancy(b))
	case dragontoothmg.Queen:
		return dragontoothmg.CalculateBishopMoveBitboard(sq, occupancy(b)) | dragontoothmg.CalculateRookMoveBitboard(sq, occupancy(b))
	}
	return 0
}

func pawnAttackersBB(targetSq uint8, pawns uint64, attackerIsWhite bool) uint64 {
	targetBB := uint64(1) << targetSq
	var attackers uint64
	if attackerIsWhite {
		if (pawns&^fileH)<<9&targetBB != 0 {
			attackers |= targetBB >> 9 &^ fileH
		}
		if (pawns&^fileA)<<7&targetBB != 0 {
			attackers |= targetBB >> 7 &^ fileA
		}
		return attackers & pawns
	}
	if (pawns&^fileH)>>7&targetBB != 0 {
		attackers |= targetBB << 7 &^ fileH
	}
	if (pawns&^fileA)>>9&targetBB != 0 {
		attackers |= targetBB << 9 &^ fileA
	}
	return attackers & pawns
}

// checkersBB finds every attacker-side piece that attacks targetSq,
// computed the same way dragontoothmg's own OurKingInCheck must (sliding
// rays via the library's CalculateRookMoveBitboard/CalculateBishopMoveBitboard,
// plus knight/pawn pseudo-attack tables), since the library does not
// expose the checker set directly.
func checkersBB(b *dragontoothmg.Board, targetSq uint8, attackerIsWhite bool) uint64 {
	atk := b.Black
	if attackerIsWhite {
		atk = b.White
	}
	occ := occupancy(b)
	var checkers uint64
	checkers |= knightAttacks[targetSq] & atk.Knights
	checkers |= dragontoothmg.CalculateBishopMoveBitboard(targetSq, occ) & (atk.Bishops | atk.Queens)
	checkers |= dragontoothmg.CalculateRookMoveBitboard(targetSq, occ) & (atk.Rooks | atk.Queens)
	checkers |= pawnAttackersBB(targetSq, atk.Pawns, attackerIsWhite)
	return checkers
}

// Rank scores a legal move m at ply (relative to the current search root;
// ply&1==0 is an OR ply, the mating side to move; ply&1==1 is an AND ply,
// the defender to move), per spec.md §4.1.
func Rank(pos *position.Position, m Move, ply int) int {
	b := pos.Board()
	score := 0

	if pos.GivesCheck(m) {
		score += bonusGivesCheck
	}

	ownBB, oppBB := sideBitboards(b)
	if pos.IsCapture(m) {
		if captured, ok := pieceTypeAt(&oppBB, m.To()); ok {
			score += mvvValue[captured]
		} else {
			score += mvvValue[dragontoothmg.Pawn] // en passant: victim isn't on To()
		}
	}

	if ply&1 == 1 {
		score += andPlyBonus(pos, b, m, ownBB, oppBB, score)
	} else {
		score += orPlyBonus(pos, b, m, ownBB, oppBB, score)
	}
	return score
}

func andPlyBonus(pos *position.Position, b *dragontoothmg.Board, m Move, ownBB, oppBB dragontoothmg.Bitboards, rankSoFar int) int {
	if !pos.InCheck() {
		return 0
	}
	bonus := 0
	kingSq := uint8(bits.TrailingZeros64(ownBB.Kings))
	attackerIsWhite := !b.Wtomove
	checkers := checkersBB(b, kingSq, attackerIsWhite)

	if checkers&(uint64(1)<<m.To()) != 0 && pos.IsCapture(m) {
		bonus += bonusCaptureChecker
	}

	if bits.OnesCount64(checkers) == 1 {
		checkerSq := uint8(bits.TrailingZeros64(checkers))
		if checkerPiece, ok := pieceTypeAt(&oppBB, checkerSq); ok &&
			(checkerPiece == dragontoothmg.Bishop || checkerPiece == dragontoothmg.Rook || checkerPiece == dragontoothmg.Queen) {
			ray := rayBetween(checkerSq, kingSq)
			if ray&(uint64(1)<<m.To()) != 0 && m.From() != kingSq {
				bonus += bonusInterposition
			}
		}
	}

	if rankSoFar < pinSetupThreshold {
		if movedPiece, ok := pieceTypeAt(&ownBB, m.From()); ok {
			if add, isSlider := pinSetupBonus[movedPiece]; isSlider {
				onRay := false
				if movedPiece == dragontoothmg.Bishop || movedPiece == dragontoothmg.Queen {
					onRay = onDiagonal(kingSq, m.To())
				}
				if movedPiece == dragontoothmg.Rook || movedPiece == dragontoothmg.Queen {
					onRay = onRay || onStraight(kingSq, m.To())
				}
				if onRay {
					bonus += add
				}
			}
		}
	}
	return bonus
}

func orPlyBonus(pos *position.Position, b *dragontoothmg.Board, m Move, ownBB, oppBB dragontoothmg.Bitboards, rankSoFar int) int {
	bonus := 0
	movedPiece, _ := pieceTypeAt(&ownBB, m.From())
	theirKingSq := uint8(bits.TrailingZeros64(oppBB.Kings))
	ourKingSq := uint8(bits.TrailingZeros64(ownBB.Kings))

	if pos.GivesCheck(m) {
		switch movedPiece {
		case dragontoothmg.Knight:
			bonus += bonusKnightCheck
		case dragontoothmg.Queen, dragontoothmg.Rook:
			if chebyshevDist(m.To(), theirKingSq) == 1 {
				bonus += bonusQRAdjacentCheck
			}
		}
		oppMoves := pos.CountRepliesAfter(m)
		if oppMoves == 0 {
			bonus += bonusMateNow
		} else {
			bonus -= penaltyPerReply * oppMoves
		}
	}

	if movedPiece == dragontoothmg.Pawn && isAdvancedPush(b, m) {
		bonus += bonusAdvancedPush
	}

	if movedPiece == dragontoothmg.King && ownBB.Queens == 0 && bits.OnesCount64(ownBB.Rooks) <= 1 {
		bonus += bonusKingApproach - kingApproachDistUnit*chebyshevDist(m.To(), theirKingSq)
	}

	if movedPiece != dragontoothmg.Pawn && freesBlockedPawn(b, ownBB, m) {
		bonus += bonusFreePawn
	}

	if add, ok := readyCheckBonus[movedPiece]; ok && hasReadyCheckFrom(movedPiece, m.To(), theirKingSq) {
		bonus += add
	}

	if add, ok := kingRingBonus[movedPiece]; ok {
		hits := bits.OnesCount64(attackSetFrom(b, movedPiece, m.To()) & kingAttacks[theirKingSq])
		bonus += add * hits
	}

	if onStraight(ourKingSq, m.To()) || onDiagonal(ourKingSq, m.To()) {
		bonus += bonusCounterCheck - counterCheckDistUnit*chebyshevDist(ourKingSq, m.To())
	}

	_ = rankSoFar
	return bonus
}

func isAdvancedPush(b *dragontoothmg.Board, m Move) bool {
	toRank := int(m.To() / 8)
	if b.Wtomove {
		return toRank == 6
	}
	return toRank == 1
}

// freesBlockedPawn reports whether m vacates the square directly in front
// of a friendly pawn sitting on the rank just short of promotion.
func freesBlockedPawn(b *dragontoothmg.Board, ownBB dragontoothmg.Bitboards, m Move) bool {
	pawnRank, forward := 6, 8
	if !b.Wtomove {
		pawnRank, forward = 1, -8
	}
	pawns := ownBB.Pawns
	for pawns != 0 {
		sq := bits.TrailingZeros64(pawns)
		pawns &= pawns - 1
		if sq/8 != pawnRank {
			continue
		}
		blockSq := sq + forward
		if blockSq < 0 || blockSq > 63 {
			continue
		}
		if int(m.From()) == blockSq {
			return true
		}
	}
	return false
}

// hasReadyCheckFrom reports whether the piece, sitting on to, is aligned
// with theirKingSq along its movement geometry (a latent check threat,
// independent of whether the ray is currently blocked).
func hasReadyCheckFrom(piece dragontoothmg.Piece, to, theirKingSq uint8) bool {
	switch piece {
	case dragontoothmg.Knight:
		return knightAttacks[to]&(uint64(1)<<theirKingSq) != 0
	case dragontoothmg.Queen:
		return onStraight(to, theirKingSq) || onDiagonal(to, theirKingSq)
	case dragontoothmg.Rook:
		return onStraight(to, theirKingSq)
	case dragontoothmg.Bishop:
		return onDiagonal(to, theirKingSq)
	}
	return false
}

// rayBetween returns the squares strictly between a and b along a shared
// rank, file or diagonal, or 0 if they are not aligned.
func rayBetween(a, b uint8) uint64 {
	ra, fa := int(a/8), int(a%8)
	rb, fb := int(b/8), int(b%8)
	dr, df := rb-ra, fb-fa
	if dr != 0 && df != 0 && abs(dr) != abs(df) {
		return 0
	}
	stepR, stepF := sign(dr), sign(df)
	var bb uint64
	r, f := ra+stepR, fa+stepF
	for r != rb || f != fb {
		bb |= uint64(1) << uint(r*8+f)
		r += stepR
		f += stepF
	}
	return bb
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// edgeDistance is the file's distance from the nearest edge file (a/h),
// ported from original_source/src/search.cpp's edge_distance(file_of(to)):
// 0 on the a/h files, rising to 3 on the d/e files.
func edgeDistance(file int) int {
	if d := 7 - file; d < file {
		return d
	}
	return file
}

// relativeRank is sq's rank as seen by the side to move: 0 on its own
// back rank, 7 on the promotion rank, matching relative_rank(us, to).
func relativeRank(wtomove bool, sq uint8) int {
	rank := int(sq / 8)
	if !wtomove {
		rank = 7 - rank
	}
	return rank
}

// RootRank extends the OR-parity ranker with the root-only terms
// original_source/src/search.cpp computes once per root move rather than
// at every OR ply: a pawn-push bonus weighted by file centrality and
// advancement (64*edge_distance + 128*relative_rank, search.cpp:244-245),
// and a penalty for root moves that leave the defending king with many
// escape squares (-40*oppKingMoves, search.cpp:260), on top of the same
// OR-parity ranker used at every other OR ply (spec.md §4.1).
func RootRank(pos *position.Position, m Move) int {
	score := Rank(pos, m, 0)
	b := pos.Board()
	ownBB, _ := sideBitboards(b)
	if movedPiece, ok := pieceTypeAt(&ownBB, m.From()); ok && movedPiece == dragontoothmg.Pawn {
		file := int(m.To() % 8)
		score += pawnEdgeDistUnit*edgeDistance(file) + pawnRelRankUnit*relativeRank(b.Wtomove, m.To())
	}
	score -= oppKingMobilityPenalty * pos.CountKingRepliesAfter(m)
	return score
}
